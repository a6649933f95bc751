// Package logging builds configured slog loggers for feature store
// services.
//
// It wraps the standard library handlers with an option-based factory and
// an environment-driven Config so that every binary wires its logger the
// same way:
//
//	cfg, err := logging.LoadConfig()
//	if err != nil {
//		return err
//	}
//	log := logging.New(logging.WithConfig(cfg), logging.WithService("feature-store"))
//	logging.SetAsDefault(log)
package logging

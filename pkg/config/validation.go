package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate checks cfg against its struct tags and cross-field invariants,
// returning a single aggregated error naming every offending field.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		verrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return err
		}
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fmt.Sprintf("%s: failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
		}
		return fmt.Errorf("invalid configuration:\n  %s", strings.Join(msgs, "\n  "))
	}

	if cfg.Planner.MaxCompoundOps < 3 {
		return fmt.Errorf("planner.max_compound_ops must be at least 3 (PUTROOTFH+op+CLOSE)")
	}

	return nil
}

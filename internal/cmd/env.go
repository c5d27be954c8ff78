package cmd

import (
	"fmt"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// applyEnv resolves environment variables on a single viper instance and
// returns it. bindings maps a key to its variable. When the key names a flag,
// the flag is filled from the variable: a flag given on the command line
// always wins over the environment and an unset or empty variable leaves the
// default alone. Keys without a flag are only readable from the returned
// instance.
func applyEnv(flags *pflag.FlagSet, bindings map[string]string) (*viper.Viper, error) {
	v := viper.New()

	for name, env := range bindings {
		if err := v.BindEnv(name, env); err != nil {
			return nil, err
		}

		f := flags.Lookup(name)
		if f == nil || f.Changed || !v.IsSet(name) {
			continue
		}
		if err := f.Value.Set(v.GetString(name)); err != nil {
			return nil, fmt.Errorf("invalid value for $%s: %w", env, err)
		}
	}

	return v, nil
}

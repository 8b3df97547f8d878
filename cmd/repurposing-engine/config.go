// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/spf13/viper"

	"github.com/pdiddy/repurposing-engine/pkg/types"
)

// loadConfig overlays the config file, environment, and bound flags on
// types.DefaultConfig.
func loadConfig(v *viper.Viper) (types.AppConfig, error) {
	cfg := types.DefaultConfig()

	// Unmarshal only decodes keys viper already knows, so bind every config
	// key to its environment variable. A bound but unset variable leaves the
	// file value or the default in place.
	for _, key := range configKeys(reflect.TypeOf(cfg), "") {
		if err := v.BindEnv(key); err != nil {
			return cfg, fmt.Errorf("binding %s: %w", key, err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decoding configuration: %w", err)
	}
	return cfg, nil
}

// configKeys lists the dotted mapstructure keys of every leaf field in t.
func configKeys(t reflect.Type, prefix string) []string {
	var keys []string
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag, opts, _ := strings.Cut(f.Tag.Get("mapstructure"), ",")
		if f.Type.Kind() == reflect.Struct && f.Type.String() != "time.Time" {
			p := prefix
			if opts != "squash" {
				p = prefix + tag + "."
			}
			keys = append(keys, configKeys(f.Type, p)...)
			continue
		}
		if tag == "" {
			continue
		}
		keys = append(keys, prefix+tag)
	}
	return keys
}

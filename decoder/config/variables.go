/*
NAME
  variables.go

DESCRIPTION
  variables.go lists the Config fields that can be defaulted by
  Validate or set at runtime by Update, following the same table-driven
  pattern as the teacher's revid configuration.

AUTHORS
  Ella Pietraroia <ella@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package config

import (
	"strconv"
)

// Config map keys.
const (
	KeyCodingRate         = "CodingRate"
	KeyDemodMethod        = "DemodMethod"
	KeyUpchirpThreshold   = "UpchirpThreshold"
	KeySyncThreshold      = "SyncThreshold"
	KeyMaxSyncFailures    = "MaxSyncFailures"
	KeyEdgeThreshold      = "EdgeThreshold"
	KeyEnergyThreshold    = "EnergyThreshold"
	KeyMaxEnergyThreshold = "MaxEnergyThreshold"
	KeyPreambleDecimation = "PreambleDecimation"
)

// Variables describes the Config fields that Validate defaults and
// Update can set from a string-keyed map.
var Variables = []struct {
	Name     string
	Update   func(*Config, string)
	Validate func(*Config)
}{
	{
		Name:   KeyUpchirpThreshold,
		Update: func(c *Config, v string) { c.UpchirpThreshold = parseFloat(KeyUpchirpThreshold, v, c) },
		Validate: func(c *Config) {
			if c.UpchirpThreshold <= 0 {
				c.LogInvalidField(KeyUpchirpThreshold, DefaultUpchirpThreshold)
				c.UpchirpThreshold = DefaultUpchirpThreshold
			}
		},
	},
	{
		Name:   KeySyncThreshold,
		Update: func(c *Config, v string) { c.SyncThreshold = parseFloat(KeySyncThreshold, v, c) },
		Validate: func(c *Config) {
			if c.SyncThreshold <= 0 {
				c.LogInvalidField(KeySyncThreshold, DefaultSyncThreshold)
				c.SyncThreshold = DefaultSyncThreshold
			}
		},
	},
	{
		Name:   KeyMaxSyncFailures,
		Update: func(c *Config, v string) { c.MaxSyncFailures = int(parseFloat(KeyMaxSyncFailures, v, c)) },
		Validate: func(c *Config) {
			if c.MaxSyncFailures <= 0 {
				c.LogInvalidField(KeyMaxSyncFailures, DefaultMaxSyncFailures)
				c.MaxSyncFailures = DefaultMaxSyncFailures
			}
		},
	},
	{
		Name:   KeyEdgeThreshold,
		Update: func(c *Config, v string) { c.EdgeThreshold = parseFloat(KeyEdgeThreshold, v, c) },
		Validate: func(c *Config) {
			if c.EdgeThreshold <= 0 {
				c.LogInvalidField(KeyEdgeThreshold, DefaultEdgeThreshold)
				c.EdgeThreshold = DefaultEdgeThreshold
			}
		},
	},
	{
		Name:   KeyEnergyThreshold,
		Update: func(c *Config, v string) { c.EnergyThreshold = parseFloat(KeyEnergyThreshold, v, c) },
		Validate: func(c *Config) {
			if c.EnergyThreshold <= 0 {
				c.LogInvalidField(KeyEnergyThreshold, DefaultEnergyThreshold)
				c.EnergyThreshold = DefaultEnergyThreshold
			}
		},
	},
	{
		Name:   KeyMaxEnergyThreshold,
		Update: func(c *Config, v string) { c.MaxEnergyThreshold = parseFloat(KeyMaxEnergyThreshold, v, c) },
		Validate: func(c *Config) {
			if c.MaxEnergyThreshold <= 0 {
				c.LogInvalidField(KeyMaxEnergyThreshold, DefaultMaxEnergyThreshold)
				c.MaxEnergyThreshold = DefaultMaxEnergyThreshold
			}
		},
	},
	{
		Name:   KeyPreambleDecimation,
		Update: func(c *Config, v string) { c.PreambleDecimation = int(parseFloat(KeyPreambleDecimation, v, c)) },
		Validate: func(c *Config) {
			if c.PreambleDecimation <= 0 {
				c.LogInvalidField(KeyPreambleDecimation, DefaultPreambleDecimation)
				c.PreambleDecimation = DefaultPreambleDecimation
			}
		},
	},
	{
		Name:   KeyDemodMethod,
		Update: func(c *Config, v string) { c.DemodMethod = int(parseFloat(KeyDemodMethod, v, c)) },
	},
	{
		Name:   KeyCodingRate,
		Update: func(c *Config, v string) { c.CodingRate = int(parseFloat(KeyCodingRate, v, c)) },
	},
}

func parseFloat(n, v string, c *Config) float64 {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		c.Logger.Warning("expected a numeric value for param "+n, "value", v)
	}
	return f
}

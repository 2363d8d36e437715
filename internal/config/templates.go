package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# Bond valuation configuration

[defaults]
# Term sheet used when a flag is not given on the command line.
# Rates are fractions per annum (0.05 = 5%).
face_value = 100.0
coupon_rate = 0.05
yield_rate = 0.1007
spread = 0.0
# 0 means a single bullet period equal to the maturity
coupon_period_days = 182
maturity_days = 366
days_per_year = 360
# zero, fixed or floating
kind = "fixed"

[curve]
# Price/yield curve bounds and sample count
low = 0.001
high = 0.25
samples = 60
# Workers used by parallel curve and batch valuation
workers = 4

[store]
# Keep a history of valuations in SQLite
enabled = true
# path = "~/.config/bondval/bondval.db"

[logging]
# debug, info, warn, error
level = "info"
# Also write a rotating log file
file = false
max_size = 20
max_backups = 3
max_age = 30

[metrics]
# Write Prometheus metrics to this file after each command (node_exporter textfile collector)
textfile = ""
`

func createTemplateConfig(configDir, name string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, name+".toml")
	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}

	return nil
}

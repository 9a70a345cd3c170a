package config

import (
	"github.com/knadh/koanf/v2"
)

func loadDefaults(k *koanf.Koanf) error {
	defaults := map[string]any{
		"server.host":     "0.0.0.0",
		"server.port":     8080,
		"server.base_url": "http://localhost:8080",

		"database.path": "/data/sanaserv.db",

		"auth.jwt_expiry":     "24h",
		"auth.admin_username": "admin",

		"jobs.dir":            "/data/jobs",
		"jobs.max_concurrent": 4,

		"sana.bin_dir":   "/opt/sana/bin",
		"sana.run_grace": "5m",

		"limits.per_user_concurrent": 3,
		"limits.link_expiry":         "24h",

		"logging.level":  "info",
		"logging.format": "pretty",
	}

	for key, val := range defaults {
		k.Set(key, val)
	}
	return nil
}

package config

import (
	"github.com/knadh/koanf/v2"
)

func loadDefaults(k *koanf.Koanf) error {
	defaults := map[string]any{
		"server.host":             "0.0.0.0",
		"server.port":             8000,
		"server.cors_origins":     []string{"http://localhost:3000"},
		"server.shutdown_timeout": "10s",

		"storage.upload_dir":  "./uploads",
		"storage.results_dir": "./results",

		"intake.max_upload_size": int64(1 << 30), // 1 GiB
		"intake.input_extension": ".txt",

		"engine.kind":           "exec",
		"engine.max_concurrent": 4,

		"engine.exec.binary": "docker-compose",
		"engine.exec.args":   []string{"run", "--rm", "imputation"},

		"engine.docker.image":        "imputation:latest",
		"engine.docker.input_mount":  "/imputation/uploads",
		"engine.docker.output_mount": "/imputation/results",

		"notifier.interval":          "1s",
		"notifier.close_on_terminal": true,

		"logging.level":  "info",
		"logging.format": "pretty",
	}

	for key, val := range defaults {
		k.Set(key, val)
	}
	return nil
}

// Command server runs the classifieds site: the HTML listing pages and the
// JSON API under /api/v1.
package main

import (
	"flag"
	"log"
	"os"

	"github.com/simp-lee/saleads/internal/app"
	"github.com/simp-lee/saleads/internal/config"
)

const defaultConfigPath = "configs/config.yaml"

func main() {
	configPath := flag.String("config", configPathFromEnv(), "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal("failed to load config: ", err)
	}

	a, err := app.New(cfg)
	if err != nil {
		log.Fatal("failed to create app: ", err)
	}

	if err := a.Run(); err != nil {
		log.Fatal("server error: ", err)
	}
}

// configPathFromEnv returns SALEADS_CONFIG when set, else the default path.
func configPathFromEnv() string {
	if p := os.Getenv("SALEADS_CONFIG"); p != "" {
		return p
	}
	return defaultConfigPath
}

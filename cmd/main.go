package main

import (
	"log"
	"os"

	"github.com/GoogleCloudPlatform/functions-framework-go/funcframework"
	_ "github.com/klipach/cozycurated"
	"github.com/klipach/cozycurated/config"
)

func main() {
	config.LoadDotenv()

	// the framework serves the target named here, local runs only have one
	if os.Getenv("FUNCTION_TARGET") == "" {
		os.Setenv("FUNCTION_TARGET", "Site")
	}
	port := config.GetEnvWithDefault("APP_PORT", "8082")

	log.Println("Started")

	if err := funcframework.Start(port); err != nil {
		log.Fatalf("funcframework.Start: %v\n", err)
	}

	log.Println("Done")
}

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"path/filepath"

	firebase "firebase.google.com/go/v4"
	"github.com/klipach/cozycurated/auth"
	"github.com/klipach/cozycurated/config"
	"google.golang.org/api/option"
)

// gentoken prints an ID token for a user, for calling the /api routes with curl.
func main() {
	ctx := context.Background()
	config.LoadDotenv()

	uidPtr := flag.String("uid", "", "User UID for token generation")
	apiKeyPtr := flag.String("apikey", config.GetEnvWithDefault("FIREBASE_API_KEY", ""), "Firebase Web API key")
	keyPtr := flag.String("key", "./service_account_key.json", "Service account key file")
	flag.Parse()

	if *uidPtr == "" {
		log.Fatalf("Please provide a user UID using the -uid flag")
	}
	if *apiKeyPtr == "" {
		log.Fatalf("Please provide the Firebase API key using the -apikey flag or FIREBASE_API_KEY")
	}

	absPath, err := filepath.Abs(*keyPtr)
	if err != nil {
		log.Fatalf("failed to get absolute path: %v", err)
	}
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(absPath))
	if err != nil {
		log.Fatalf("error initializing app: %v", err)
	}

	client, err := app.Auth(ctx)
	if err != nil {
		log.Fatalf("error getting Auth client: %v", err)
	}

	customToken, err := client.CustomToken(ctx, *uidPtr)
	if err != nil {
		log.Fatalf("error creating custom token: %v", err)
	}

	resp, err := auth.NewIdentityClient(*apiKeyPtr).SignInWithCustomToken(ctx, customToken)
	if err != nil {
		log.Fatalf("error exchanging custom token: %v", err)
	}

	fmt.Println(resp.IDToken)
}

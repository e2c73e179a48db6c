// Package firebase builds the ID-token verifier behind /api/firebase-login.
package firebase

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

// NewAuthClient reads a service account file and returns the Firebase Auth
// client. The project id is taken from the file.
func NewAuthClient(ctx context.Context, credentialsPath string) (*auth.Client, error) {
	raw, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("read firebase credentials: %w", err)
	}
	var account struct {
		ProjectID string `json:"project_id"`
	}
	if err := json.Unmarshal(raw, &account); err != nil {
		return nil, fmt.Errorf("parse firebase credentials %s: %w", credentialsPath, err)
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: account.ProjectID}, option.WithCredentialsJSON(raw))
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting firebase auth client: %w", err)
	}
	return client, nil
}

// Package firebaseapp builds the Firebase Admin app shared by Firestore,
// Firebase Auth and Cloud Messaging clients.
package firebaseapp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	firebase "firebase.google.com/go/v4"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"

	"beomusic_backend/internal/config"
)

type serviceAccount struct {
	Type        string `json:"type"`
	ProjectID   string `json:"project_id"`
	PrivateKey  string `json:"private_key"`
	ClientEmail string `json:"client_email"`
	TokenURI    string `json:"token_uri"`
}

// CredentialsJSON builds a service-account JSON document from inline env
// credentials. Private keys in .env files usually carry literal "\n"
// sequences, which are turned back into newlines.
func CredentialsJSON(projectID, clientEmail, privateKey string) ([]byte, error) {
	return json.Marshal(serviceAccount{
		Type:        "service_account",
		ProjectID:   projectID,
		PrivateKey:  strings.ReplaceAll(privateKey, `\n`, "\n"),
		ClientEmail: clientEmail,
		TokenURI:    "https://oauth2.googleapis.com/token",
	})
}

// NewApp initialises the Firebase app from a credentials file when one is
// configured, otherwise from the inline FIREBASE_* variables.
func NewApp(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*firebase.App, error) {
	var opt option.ClientOption
	if cfg.FirebaseCredentialsFile != "" {
		opt = option.WithCredentialsFile(cfg.FirebaseCredentialsFile)
	} else {
		creds, err := CredentialsJSON(cfg.FirebaseProjectID, cfg.FirebaseClientEmail, cfg.FirebasePrivateKey)
		if err != nil {
			return nil, fmt.Errorf("encode firebase credentials: %w", err)
		}
		opt = option.WithCredentialsJSON(creds)
	}

	var appCfg *firebase.Config
	if cfg.FirebaseProjectID != "" {
		appCfg = &firebase.Config{ProjectID: cfg.FirebaseProjectID}
	}

	app, err := firebase.NewApp(ctx, appCfg, opt)
	if err != nil {
		return nil, fmt.Errorf("initialize firebase app: %w", err)
	}

	logger.WithField("project_id", cfg.FirebaseProjectID).Info("Firebase app initialized")
	return app, nil
}

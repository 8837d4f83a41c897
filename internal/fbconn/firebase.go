// Package fbconn wires the Firebase admin SDK: ID token verification for
// dashboard admins, the storage bucket for uploads and a realtime database
// mirror for kiosk displays.
package fbconn

import (
	"context"
	"errors"
	"fmt"

	"hill-valley/internal/config"

	gcs "cloud.google.com/go/storage"
	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"firebase.google.com/go/v4/db"
	"google.golang.org/api/option"
)

// FirebaseConnector holds the Firebase app and the clients derived from it.
type FirebaseConnector struct {
	app        *firebase.App
	auth       *auth.Client
	bucketName string
	rtdb       *db.Client
}

// NewFirebaseConnector initializes the app from a service account key.
func NewFirebaseConnector(ctx context.Context, cfg config.Config) (*FirebaseConnector, error) {
	if !cfg.FirebaseEnabled() {
		return nil, errors.New("firebase credentials file is not set")
	}
	opt := option.WithCredentialsFile(cfg.FirebaseCredentialsFile)
	fbCfg := &firebase.Config{
		ProjectID:     cfg.FirebaseProjectID,
		StorageBucket: cfg.FirebaseStorageBucket,
		DatabaseURL:   cfg.FirebaseDatabaseURL,
	}
	app, err := firebase.NewApp(ctx, fbCfg, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing Firebase app: %w", err)
	}
	authClient, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting auth client: %w", err)
	}
	fc := &FirebaseConnector{
		app:        app,
		auth:       authClient,
		bucketName: cfg.FirebaseStorageBucket,
	}
	if cfg.FirebaseDatabaseURL != "" {
		client, err := app.Database(ctx)
		if err != nil {
			return nil, fmt.Errorf("error getting database client: %w", err)
		}
		fc.rtdb = client
	}
	return fc, nil
}

// VerifyIDToken checks a Firebase ID token and returns its identity.
func (fc *FirebaseConnector) VerifyIDToken(ctx context.Context, idToken string) (Identity, error) {
	token, err := fc.auth.VerifyIDToken(ctx, idToken)
	if err != nil {
		return Identity{}, err
	}
	identity := Identity{UID: token.UID}
	if email, ok := token.Claims["email"].(string); ok {
		identity.Email = email
	}
	if verified, ok := token.Claims["email_verified"].(bool); ok {
		identity.EmailVerified = verified
	}
	return identity, nil
}

// Bucket returns the configured bucket, or the project default.
func (fc *FirebaseConnector) Bucket(ctx context.Context) (*gcs.BucketHandle, error) {
	client, err := fc.app.Storage(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting storage client: %w", err)
	}
	if fc.bucketName != "" {
		return client.Bucket(fc.bucketName)
	}
	return client.DefaultBucket()
}

// Mirror returns a realtime database publisher, or nil when no database URL
// was configured.
func (fc *FirebaseConnector) Mirror() *Mirror {
	if fc.rtdb == nil {
		return nil
	}
	return &Mirror{client: fc.rtdb}
}

type Identity struct {
	UID           string
	Email         string
	EmailVerified bool
}

package fbconn

import (
	"context"
	"fmt"
	"strings"

	"firebase.google.com/go/v4/db"
)

// Mirror copies live state into the realtime database under "live/".
type Mirror struct {
	client *db.Client
}

func (m *Mirror) Publish(ctx context.Context, topic string, payload any) error {
	path := "live/" + strings.ReplaceAll(strings.Trim(topic, "/"), ":", "/")
	if err := m.client.NewRef(path).Set(ctx, payload); err != nil {
		return fmt.Errorf("error publishing %s: %w", path, err)
	}
	return nil
}

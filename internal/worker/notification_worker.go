package worker

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/spec-kit/support-hub/internal/service"
)

// StartNotificationWorker subscribes the notification handlers and, when a
// relay is configured, runs its subscriber in g until ctx is done.
func StartNotificationWorker(ctx context.Context, g *errgroup.Group, notificationService *service.NotificationService, relay *NotificationRelay) {
	if notificationService != nil {
		notificationService.RegisterHandlers()
	}
	if relay == nil || g == nil {
		return
	}
	g.Go(func() error {
		return relay.Run(ctx)
	})
}

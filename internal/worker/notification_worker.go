package worker

import (
	"github.com/caosaude/solicitacoes/internal/service"
)

// StartNotificationWorker subscribes the change feed to domain events.
func StartNotificationWorker(notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}

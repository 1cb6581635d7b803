package ports

import "github.com/awais2281/rizqa-ai/internal/models"

type EventPublisher interface {
	Publish(room string, ev models.Event)
}

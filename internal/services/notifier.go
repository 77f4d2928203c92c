package services

import (
	"encoding/json"
	"fmt"

	"mozicblog/internal/models"
	"mozicblog/pkg/rabbitmq"
)

// Notifier dispatches outbound email. The actual delivery (templating, SMTP)
// lives behind the broker; the service only hands over the event.
type Notifier interface {
	SendActivationEmail(user *models.User) error
}

// AMQPNotifier publishes activation mail events to the mail queue.
type AMQPNotifier struct {
	mqClient *rabbitmq.Client
	baseURL  string // public base URL used to build the activation link
}

// NewAMQPNotifier creates an AMQPNotifier publishing through mqClient.
func NewAMQPNotifier(mqClient *rabbitmq.Client, baseURL string) *AMQPNotifier {
	return &AMQPNotifier{
		mqClient: mqClient,
		baseURL:  baseURL,
	}
}

// SendActivationEmail publishes a mail event carrying the activation link for
// the user's one-time token. The mail worker consuming the queue renders and
// sends the actual message.
func (n *AMQPNotifier) SendActivationEmail(user *models.User) error {
	if user.ActivationToken == nil {
		return fmt.Errorf("user %s has no activation token", user.ID)
	}

	event := map[string]interface{}{
		"type":           "account.activation",
		"user_id":        user.ID,
		"name":           user.Name,
		"to":             user.Email,
		"activation_url": fmt.Sprintf("%s/signup/confirm/%s", n.baseURL, *user.ActivationToken),
	}
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal activation mail event: %w", err)
	}

	if err := n.mqClient.Publish("", rabbitmq.MailQueue, body); err != nil {
		return fmt.Errorf("failed to publish activation mail event: %w", err)
	}
	return nil
}

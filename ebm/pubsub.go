package ebm

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"strings"

	"bitbucket.org/medilink/pharmacy_backend/config"
	"cloud.google.com/go/pubsub"
	"github.com/gin-gonic/gin"
)

type PubSubPushEnvelope struct {
	Message struct {
		Data []byte `json:"data"`
		ID   string `json:"messageId"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

type SyncPubSubPayload struct {
	CompanyId string `json:"company_id"`
	Force     bool   `json:"force"`
}

// PublishSyncRequest queues one company's sync on the Pub/Sub topic; the
// push subscription delivers it back to PubSubPushHandler.
func PublishSyncRequest(ctx context.Context, companyId string, force bool) error {
	topicName := strings.TrimSpace(os.Getenv("EBM_SYNC_TOPIC"))
	if topicName == "" {
		topicName = "ebm-sync"
	}

	client, err := config.GetClient(ctx)
	if err != nil {
		return err
	}

	topic := client.Topic(topicName)
	if envBoolDefault("EBM_SYNC_CREATE_TOPIC", false) {
		topic, err = config.CreateTopicIfNotExists(client, topicName)
		if err != nil {
			return err
		}
	}

	payload := SyncPubSubPayload{
		CompanyId: companyId,
		Force:     force,
	}
	data, _ := json.Marshal(payload)
	res := topic.Publish(ctx, &pubsub.Message{Data: data})
	_, err = res.Get(ctx)
	return err
}

// PubSubPushHandler accepts Pub/Sub push deliveries and runs the requested
// company sync. Malformed envelopes are acked (204) so they are not
// redelivered forever.
func PubSubPushHandler(runner *SyncRunner, codes *CodeSyncService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !envBoolDefault("ENABLE_EBM_PUBSUB_PUSH_ENDPOINT", true) {
			c.Status(204)
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.Status(204)
			return
		}

		var envelope PubSubPushEnvelope
		if err := json.Unmarshal(body, &envelope); err != nil {
			c.Status(204)
			return
		}

		var payload SyncPubSubPayload
		if err := json.Unmarshal(envelope.Message.Data, &payload); err != nil {
			c.Status(204)
			return
		}
		if payload.CompanyId == "" {
			c.Status(204)
			return
		}

		if payload.Force {
			_ = codes.ForceSync(c.Request.Context(), payload.CompanyId)
		}
		runner.RunCompany(c.Request.Context(), payload.CompanyId)
		c.Status(204)
	}
}

func envBoolDefault(key string, def bool) bool {
	val := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch val {
	case "true", "1", "yes", "y", "on":
		return true
	case "false", "0", "no", "n", "off":
		return false
	default:
		return def
	}
}

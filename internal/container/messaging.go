package container

import (
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/samber/do"
	"github.com/serroba/quota-gate-go/internal/audit"
	"github.com/serroba/quota-gate-go/internal/messaging"
	"github.com/serroba/quota-gate-go/internal/metrics"
	"go.uber.org/zap"
)

// AuditConsumerGroup is the Redis stream consumer group that reads quota events.
const AuditConsumerGroup = "quota-audit"

// PublisherGroupPackage provides the quota event publisher. Events go through
// a bounded queue so the gate never waits on the stream. When auditing is
// disabled the publish function is nil and the gate skips publishing.
func PublisherGroupPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*messaging.PublisherGroup, error) {
		conn := do.MustInvoke[*RedisConn](i)
		logger := do.MustInvoke[*zap.Logger](i)

		publisher, err := redisstream.NewPublisher(redisstream.PublisherConfig{
			Client:     conn.Client,
			Marshaller: redisstream.DefaultMarshallerUnmarshaller{},
		}, messaging.NewZapLogger(logger))
		if err != nil {
			return nil, err
		}

		return messaging.NewPublisherGroup(publisher), nil
	})

	do.Provide(i, func(i *do.Injector) (*messaging.AsyncPublisher[audit.QuotaEvent], error) {
		opts := do.MustInvoke[*Options](i)
		group := do.MustInvoke[*messaging.PublisherGroup](i)
		logger := do.MustInvoke[*zap.Logger](i)
		m := do.MustInvoke[*metrics.Metrics](i)

		publish := messaging.NewPublishFunc[audit.QuotaEvent](group.Publisher(), audit.TopicQuota)

		return messaging.NewAsyncPublisher(publish, opts.AuditQueueSize, opts.AuditTimeout(),
			func(event *audit.QuotaEvent, err error) {
				m.IncPublishFailure()
				logger.Error("failed to publish quota event",
					zap.String("endpoint", event.Endpoint),
					zap.String("outcome", string(event.Outcome)),
					zap.Error(err),
				)
			},
		), nil
	})

	do.Provide(i, func(i *do.Injector) (messaging.Publish[audit.QuotaEvent], error) {
		opts := do.MustInvoke[*Options](i)
		if !opts.AuditEnabled {
			return nil, nil
		}

		return do.MustInvoke[*messaging.AsyncPublisher[audit.QuotaEvent]](i).Publish, nil
	})
}

// ConsumerGroupPackage provides the consumer group that persists quota events.
func ConsumerGroupPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*messaging.ConsumerGroup, error) {
		conn := do.MustInvoke[*RedisConn](i)
		logger := do.MustInvoke[*zap.Logger](i)
		auditStore := do.MustInvoke[audit.Store](i)

		subscriber, err := redisstream.NewSubscriber(redisstream.SubscriberConfig{
			Client:        conn.Client,
			Unmarshaller:  redisstream.DefaultMarshallerUnmarshaller{},
			ConsumerGroup: AuditConsumerGroup,
		}, messaging.NewZapLogger(logger))
		if err != nil {
			return nil, err
		}

		group := messaging.NewConsumerGroup(subscriber, logger)
		group.Add(messaging.NewConsumer[audit.QuotaEvent](subscriber, audit.TopicQuota, auditStore.SaveQuotaEvent, logger))

		return group, nil
	})
}

package pubsub

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

var (
	errProjectIDRequired = errors.New("gcp project id is required")
	errNoTopics          = errors.New("at least one pubsub topic is required")
	errNotInitialized    = errors.New("pubsub client not initialized")
)

// topicAdmin is the slice of the topic admin API the client uses.
type topicAdmin interface {
	GetTopic(ctx context.Context, name string) error
	CreateTopic(ctx context.Context, name string) error
}

// Client publishes to a fixed set of topics. Subscriptions belong to the
// consumers, so they are not managed here.
type Client struct {
	client  *pubsub.Client
	admin   topicAdmin
	project string
	topics  []string
	create  bool

	mu         sync.Mutex
	publishers map[string]*pubsub.Publisher
}

// NewClient dials Pub/Sub and checks that every topic exists, creating the
// missing ones when cfg.CreateTopics is set.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, topics []string, logg *logger.Logger) (*Client, error) {
	project := strings.TrimSpace(gcp.ProjectID)
	if project == "" {
		return nil, errProjectIDRequired
	}
	ps, err := pubsub.NewClient(ctx, project, clientOptions(gcp)...)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	c := &Client{
		client:     ps,
		admin:      grpcAdmin{ps: ps},
		project:    project,
		create:     cfg.CreateTopics,
		publishers: map[string]*pubsub.Publisher{},
	}
	for _, name := range topics {
		if full := resourceName(project, name); full != "" && !slices.Contains(c.topics, full) {
			c.topics = append(c.topics, full)
		}
	}
	if err := c.Ping(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}
	if logg != nil {
		logg.Info(logg.WithField(ctx, "topics", c.topics), "pubsub client initialized")
	}
	return c, nil
}

func clientOptions(gcp config.GCPConfig) []option.ClientOption {
	switch {
	case strings.TrimSpace(gcp.CredentialsJSON) != "":
		return []option.ClientOption{option.WithCredentialsJSON([]byte(gcp.CredentialsJSON))}
	case strings.TrimSpace(gcp.ApplicationCredentials) != "":
		return []option.ClientOption{option.WithCredentialsFile(gcp.ApplicationCredentials)}
	}
	return nil
}

// Ping checks that every configured topic is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.admin == nil {
		return errNotInitialized
	}
	if len(c.topics) == 0 {
		return errNoTopics
	}
	for _, topic := range c.topics {
		err := c.admin.GetTopic(ctx, topic)
		switch {
		case err == nil:
			continue
		case status.Code(err) != codes.NotFound:
			return fmt.Errorf("checking topic %s: %w", topic, err)
		case !c.create:
			return fmt.Errorf("topic %s does not exist", topic)
		}
		if err := c.admin.CreateTopic(ctx, topic); err != nil && status.Code(err) != codes.AlreadyExists {
			return fmt.Errorf("creating topic %s: %w", topic, err)
		}
	}
	return nil
}

// Publisher returns the cached publisher for a topic id or resource name.
func (c *Client) Publisher(name string) *pubsub.Publisher {
	if c == nil || c.client == nil {
		return nil
	}
	full := resourceName(c.project, name)
	if full == "" {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.publishers[full]
	if !ok {
		p = c.client.Publisher(full)
		c.publishers[full] = p
	}
	return p
}

// Close flushes pending publishes and releases the client.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	c.mu.Lock()
	for full, p := range c.publishers {
		p.Stop()
		delete(c.publishers, full)
	}
	c.mu.Unlock()
	return c.client.Close()
}

// resourceName expands a bare topic id to projects/<p>/topics/<id>. Full
// resource names pass through.
func resourceName(project, name string) string {
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		return ""
	case strings.HasPrefix(name, "projects/") && strings.Contains(name, "/topics/"):
		return name
	case strings.TrimSpace(project) == "":
		return ""
	}
	return "projects/" + strings.TrimSpace(project) + "/topics/" + name
}

type grpcAdmin struct {
	ps *pubsub.Client
}

func (a grpcAdmin) GetTopic(ctx context.Context, name string) error {
	_, err := a.ps.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: name})
	return err
}

func (a grpcAdmin) CreateTopic(ctx context.Context, name string) error {
	_, err := a.ps.TopicAdminClient.CreateTopic(ctx, &pubsubpb.Topic{Name: name})
	return err
}

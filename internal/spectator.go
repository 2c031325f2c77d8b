package clusterspectator

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/hashicorp/memberlist"
	"github.com/pkg/errors"

	"github.com/spectator-tech/cluster-spectator/internal/hashring"
)

// NodeConfigs carries the identity and addressing of this node within the
// cluster.
type NodeConfigs struct {
	ServerID    string
	ClusterName string
	Advertise   string
	Join        string
	NodePort    int
	ServerPort  int
}

// Spectator observes one cluster: it joins the gossip memberlist, mirrors
// the cluster's topology metadata into a ClusterDataCache, keeps a placement
// ring in step with the live instances, and hosts the state machine engine
// for any state models registered by the embedding application.
type Spectator struct {
	*Node
	*ClusterDataCache
	Accessor
	NodeConfigs

	Engine StateMachineEngine

	observer        Observer
	refreshInterval time.Duration
	driver          *RefreshDriver
}

type SpectatorOption func(*Spectator)

// WithAccessor sets the coordination store accessor the spectator reads
// cluster metadata through. Required.
func WithAccessor(accessor Accessor) SpectatorOption {
	return func(s *Spectator) {
		s.Accessor = accessor
	}
}

// WithNodeConfigs sets the Spectator's NodeConfigs.
func WithNodeConfigs(cfg NodeConfigs) SpectatorOption {
	return func(s *Spectator) {
		s.NodeConfigs = cfg
	}
}

// WithCacheObserver routes the cache's diagnostics to the given observer.
func WithCacheObserver(obs Observer) SpectatorOption {
	return func(s *Spectator) {
		s.observer = obs
	}
}

// WithRefreshInterval sets how often the refresh driver re-checks the dirty
// flags even without a wake-up.
func WithRefreshInterval(interval time.Duration) SpectatorOption {
	return func(s *Spectator) {
		s.refreshInterval = interval
	}
}

// NewSpectator constructs a new Spectator with the options provided and
// joins it to the gossip cluster.
func NewSpectator(opts ...SpectatorOption) (*Spectator, error) {

	s := Spectator{
		Engine:   NewStateMachineEngine(),
		observer: LogObserver{},
	}

	for _, opt := range opts {
		opt(&s)
	}

	if s.Accessor == nil {
		return nil, errors.New("a store Accessor is required to construct a Spectator")
	}

	s.ClusterDataCache = NewClusterDataCache(s.ClusterName, WithObserver(s.observer))
	s.driver = NewRefreshDriver(s.ClusterDataCache, s.Accessor, s.refreshInterval)

	node := &Node{
		ID:     s.ServerID,
		Router: NewMapConnRouter(),
		Ring:   hashring.NewConsistentRing(nil),
		Cache:  s.ClusterDataCache,
		wake:   s.driver.Wake,
	}
	s.Node = node

	memberlistConfig := memberlist.DefaultLANConfig()
	memberlistConfig.PushPullInterval = 10 * time.Second
	memberlistConfig.Name = node.ID

	if s.Advertise != "" {
		memberlistConfig.AdvertiseAddr = s.Advertise
	}

	memberlistConfig.BindPort = s.NodePort
	memberlistConfig.Events = node

	list, err := memberlist.Create(memberlistConfig)
	if err != nil {
		return nil, err
	}
	node.Memberlist = list

	meta, err := json.Marshal(NodeMetadata{
		ServerPort: s.ServerPort,
	})
	if err != nil {
		return nil, err
	}

	list.LocalNode().Meta = meta

	if s.Join != "" {
		joinAddrs := strings.Split(s.Join, ",")

		if numJoined, err := list.Join(joinAddrs); err != nil {
			if numJoined < 1 {
				return nil, err
			}
		}

		// Anything may have happened while this node was away from the
		// cluster; reload everything on the first refresh.
		s.RequireFullRefresh()
	}

	return &s, nil
}

// Run drives the refresh loop until the context is cancelled.
func (s *Spectator) Run(ctx context.Context) {
	s.driver.Run(ctx)
}

// Healthy reports whether the spectator has completed at least one full
// refresh since starting.
func (s *Spectator) Healthy() bool {
	return s.driver.Healthy()
}

// SyncPlacementRing reconciles the placement ring with the cache's current
// live-instance snapshot. Intended to be called after a refresh when the
// embedding application routes by ring placement rather than gossip
// membership alone.
func (s *Spectator) SyncPlacementRing() {
	s.Ring.Sync(sortedKeys(s.LiveInstances()))
}

// Close leaves the gossip cluster and releases every held connection.
func (s *Spectator) Close() error {
	err := s.Node.Memberlist.Leave(5 * time.Second)
	s.Router.Close()
	return err
}

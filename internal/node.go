package clusterspectator

import (
	"encoding/json"
	"fmt"

	"github.com/hashicorp/memberlist"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"

	"github.com/spectator-tech/cluster-spectator/internal/hashring"
)

// Node represents this process within the gossip cluster. Its memberlist
// event callbacks are the asynchronous watch channel of the topology cache:
// membership changes mark the corresponding cache partitions dirty and keep
// the placement ring and per-instance connections in step. The callbacks
// themselves perform no store I/O; the refresh driver picks the dirty flags
// up later.
type Node struct {

	// The unique identifier of the node within the cluster.
	ID string

	Memberlist *memberlist.Memberlist
	Router     ConnRouter
	Ring       hashring.Ring
	Cache      *ClusterDataCache

	// wake, when set, nudges the refresh driver after a notification.
	wake func()
}

func (n *Node) notifyAndWake(changeType ChangeType) {
	n.Cache.NotifyDataChange(changeType)
	if n.wake != nil {
		n.wake()
	}
}

// NodeMetadata is gossiped alongside membership so peers know where to reach
// each node's gRPC server.
type NodeMetadata struct {
	ServerPort int `json:"serverPort"`
}

// NotifyJoin is invoked when a new node has joined the cluster.
// The `member` argument must not be modified.
func (n *Node) NotifyJoin(member *memberlist.Node) {

	log.Infof("Cluster member with id '%s' joined the cluster at address '%s'", member.String(), member.FullAddress().Addr)

	instanceID := member.String()
	if instanceID != n.ID {
		var meta NodeMetadata
		if err := json.Unmarshal(member.Meta, &meta); err != nil {
			log.Errorf("Failed to json.Unmarshal the node metadata for '%s': %v", instanceID, err)
		}

		remoteAddr := fmt.Sprintf("%s:%d", member.Addr, meta.ServerPort)

		conn, err := grpc.Dial(remoteAddr, grpc.WithInsecure())
		if err != nil {
			log.Errorf("Failed to establish a grpc connection to cluster member '%s' at address '%s'", instanceID, remoteAddr)
			return
		}

		n.Router.AddConn(instanceID, conn)
	}

	n.Ring.Add(instanceID)
	n.notifyAndWake(LiveInstanceChange)
	log.Tracef("placement ring checksum: %d", n.Ring.Checksum())
}

// NotifyLeave is invoked when a node leaves the cluster. The
// `member` argument must not be modified.
func (n *Node) NotifyLeave(member *memberlist.Node) {

	log.Infof("Cluster member with id '%v' at address '%v' left the cluster", member.String(), member.FullAddress().Addr)

	instanceID := member.String()
	if instanceID != n.ID {
		n.Router.RemoveConn(instanceID)
	}

	n.Ring.Remove(instanceID)
	n.notifyAndWake(LiveInstanceChange)
	log.Tracef("placement ring checksum: %d", n.Ring.Checksum())
}

// NotifyUpdate is invoked when a node in the cluster is updated, usually
// involving the meta-data of the node. A metadata update means the node's
// published configuration changed. The `member` argument must not be
// modified.
func (n *Node) NotifyUpdate(member *memberlist.Node) {
	n.notifyAndWake(InstanceConfigChange)
}

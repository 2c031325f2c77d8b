package clusterspectator

import (
	"sync"

	"github.com/pkg/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health/grpc_health_v1"
)

var ErrConnNotFound = errors.New("no connection is held for the provided instance")

// ConnRouter tracks one gRPC connection per cluster instance. The memberlist
// event delegate adds and removes connections as nodes join and leave.
type ConnRouter interface {

	// AddConn registers the connection for the given instance, closing and
	// replacing any previous one.
	AddConn(instanceID string, conn *grpc.ClientConn)

	// GetConn fetches the connection for the given instance.
	GetConn(instanceID string) (*grpc.ClientConn, error)

	// HealthClient returns a health-check client bound to the instance's
	// connection.
	HealthClient(instanceID string) (grpc_health_v1.HealthClient, error)

	// RemoveConn removes and closes the connection for the given instance.
	RemoveConn(instanceID string)

	// Close closes every held connection.
	Close()
}

// mapConnRouter implements the ConnRouter interface ontop of a simple map
// structure.
type mapConnRouter struct {
	rw    sync.RWMutex
	conns map[string]*grpc.ClientConn
}

func NewMapConnRouter() ConnRouter {
	r := mapConnRouter{
		conns: map[string]*grpc.ClientConn{},
	}

	return &r
}

// AddConn registers the connection for the given instance.
//
// This method is safe for concurrent use.
func (r *mapConnRouter) AddConn(instanceID string, conn *grpc.ClientConn) {
	defer r.rw.Unlock()
	r.rw.Lock()

	if previous, ok := r.conns[instanceID]; ok {
		previous.Close()
	}
	r.conns[instanceID] = conn
}

// GetConn fetches the connection for the given instance or returns an error
// if none exists.
//
// This method is safe for concurrent use.
func (r *mapConnRouter) GetConn(instanceID string) (*grpc.ClientConn, error) {
	defer r.rw.RUnlock()
	r.rw.RLock()

	conn, ok := r.conns[instanceID]
	if !ok {
		return nil, ErrConnNotFound
	}
	return conn, nil
}

// HealthClient returns a health client over the instance's connection.
//
// This method is safe for concurrent use.
func (r *mapConnRouter) HealthClient(instanceID string) (grpc_health_v1.HealthClient, error) {
	conn, err := r.GetConn(instanceID)
	if err != nil {
		return nil, err
	}
	return grpc_health_v1.NewHealthClient(conn), nil
}

// RemoveConn removes and closes the connection for the given instance.
//
// This method is safe for concurrent use.
func (r *mapConnRouter) RemoveConn(instanceID string) {
	defer r.rw.Unlock()
	r.rw.Lock()

	if conn, ok := r.conns[instanceID]; ok {
		conn.Close()
		delete(r.conns, instanceID)
	}
}

// Close closes every held connection.
func (r *mapConnRouter) Close() {
	defer r.rw.Unlock()
	r.rw.Lock()

	for instanceID, conn := range r.conns {
		conn.Close()
		delete(r.conns, instanceID)
	}
}

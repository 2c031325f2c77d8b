package clusterspectator

import (
	"sync"

	"github.com/pkg/errors"
)

// StateTransitionMessageType identifies the messages the state machine
// engine produces handlers for.
const StateTransitionMessageType = "STATE_TRANSITION"

// defaultFactoryScope is the registry slot used for factories that are not
// scoped to a single resource.
const defaultFactoryScope = "*"

// Message is a state-transition request addressed to one partition replica
// hosted by this node. Message delivery itself is owned by the surrounding
// framework; this package only produces handlers for messages it is given.
type Message struct {
	ID            string
	MsgType       string
	ResourceName  string
	PartitionName string
	StateModelDef string
	FromState     string
	ToState       string
}

// MessageHandler executes one message.
type MessageHandler interface {
	HandleMessage() error

	// OnError is invoked by the framework when handling failed terminally.
	OnError(err error)
}

// MessageHandlerFactory produces a handler for an incoming message. The
// state machine engine is a specialization of this contract for
// state-transition messages.
type MessageHandlerFactory interface {
	CreateHandler(msg Message) (MessageHandler, error)

	// MessageType returns the message type this factory handles.
	MessageType() string

	// Reset drops any per-resource handler state, e.g. after the node is
	// reset by the controller.
	Reset()
}

// StateModel tracks and transitions the state of one partition replica.
type StateModel interface {
	CurrentState() string

	// Transition applies the message's FromState -> ToState transition.
	Transition(msg Message) error
}

// StateModelFactory produces per-partition state models.
type StateModelFactory interface {
	CreateStateModel(resourceName, partitionName string) StateModel
}

// StateMachineEngine associates state model factories with named state model
// definitions, optionally scoped to one resource, and produces message
// handlers that drive the resulting models.
type StateMachineEngine interface {
	MessageHandlerFactory

	// RegisterStateModelFactory registers a factory for a state model
	// definition, cluster-wide. It reports false if a factory is already
	// registered for that definition.
	RegisterStateModelFactory(stateModelDef string, factory StateModelFactory) bool

	// RegisterResourceStateModelFactory registers a factory for a state
	// model definition scoped to one resource. Resource-scoped factories
	// take precedence over cluster-wide ones at handler creation.
	RegisterResourceStateModelFactory(stateModelDef, resourceName string, factory StateModelFactory) bool

	// RemoveStateModelFactory reverses a cluster-wide registration. It
	// reports false if no such registration exists.
	RemoveStateModelFactory(stateModelDef string) bool

	// RemoveResourceStateModelFactory reverses a resource-scoped
	// registration. It reports false if no such registration exists.
	RemoveResourceStateModelFactory(stateModelDef, resourceName string) bool
}

type stateMachineEngine struct {
	rw sync.RWMutex

	// factories is keyed by state model definition, then by resource name
	// (defaultFactoryScope for cluster-wide registrations).
	factories map[string]map[string]StateModelFactory

	// models holds the lazily created state model per (resource, partition).
	models map[string]StateModel
}

// NewStateMachineEngine returns an empty state machine engine.
func NewStateMachineEngine() StateMachineEngine {
	return &stateMachineEngine{
		factories: map[string]map[string]StateModelFactory{},
		models:    map[string]StateModel{},
	}
}

func (e *stateMachineEngine) RegisterStateModelFactory(stateModelDef string, factory StateModelFactory) bool {
	return e.register(stateModelDef, defaultFactoryScope, factory)
}

func (e *stateMachineEngine) RegisterResourceStateModelFactory(stateModelDef, resourceName string, factory StateModelFactory) bool {
	if resourceName == "" {
		return false
	}
	return e.register(stateModelDef, resourceName, factory)
}

func (e *stateMachineEngine) register(stateModelDef, scope string, factory StateModelFactory) bool {
	if stateModelDef == "" || factory == nil {
		return false
	}

	defer e.rw.Unlock()
	e.rw.Lock()

	scopes, ok := e.factories[stateModelDef]
	if !ok {
		scopes = map[string]StateModelFactory{}
		e.factories[stateModelDef] = scopes
	}

	if _, exists := scopes[scope]; exists {
		return false
	}

	scopes[scope] = factory
	return true
}

func (e *stateMachineEngine) RemoveStateModelFactory(stateModelDef string) bool {
	return e.remove(stateModelDef, defaultFactoryScope)
}

func (e *stateMachineEngine) RemoveResourceStateModelFactory(stateModelDef, resourceName string) bool {
	if resourceName == "" {
		return false
	}
	return e.remove(stateModelDef, resourceName)
}

func (e *stateMachineEngine) remove(stateModelDef, scope string) bool {
	defer e.rw.Unlock()
	e.rw.Lock()

	scopes, ok := e.factories[stateModelDef]
	if !ok {
		return false
	}

	if _, exists := scopes[scope]; !exists {
		return false
	}

	delete(scopes, scope)
	if len(scopes) == 0 {
		delete(e.factories, stateModelDef)
	}
	return true
}

// CreateHandler produces a handler that applies the message's transition to
// the partition's state model, creating the model on first use. The
// resource-scoped factory wins over the cluster-wide one.
func (e *stateMachineEngine) CreateHandler(msg Message) (MessageHandler, error) {
	if msg.MsgType != StateTransitionMessageType {
		return nil, errors.Errorf("unexpected message type '%s' for message '%s'", msg.MsgType, msg.ID)
	}

	defer e.rw.Unlock()
	e.rw.Lock()

	scopes, ok := e.factories[msg.StateModelDef]
	if !ok {
		return nil, errors.Errorf("no state model factory registered for definition '%s'", msg.StateModelDef)
	}

	factory, ok := scopes[msg.ResourceName]
	if !ok {
		factory, ok = scopes[defaultFactoryScope]
		if !ok {
			return nil, errors.Errorf("no state model factory registered for definition '%s' and resource '%s'",
				msg.StateModelDef, msg.ResourceName)
		}
	}

	modelKey := msg.ResourceName + "/" + msg.PartitionName
	model, ok := e.models[modelKey]
	if !ok {
		model = factory.CreateStateModel(msg.ResourceName, msg.PartitionName)
		e.models[modelKey] = model
	}

	return &transitionHandler{model: model, msg: msg}, nil
}

func (e *stateMachineEngine) MessageType() string {
	return StateTransitionMessageType
}

func (e *stateMachineEngine) Reset() {
	defer e.rw.Unlock()
	e.rw.Lock()
	e.models = map[string]StateModel{}
}

type transitionHandler struct {
	model StateModel
	msg   Message
}

func (h *transitionHandler) HandleMessage() error {
	current := h.model.CurrentState()
	if current != h.msg.FromState {
		return errors.Errorf("partition '%s' is in state '%s', cannot apply transition '%s' -> '%s'",
			h.msg.PartitionName, current, h.msg.FromState, h.msg.ToState)
	}
	return h.model.Transition(h.msg)
}

func (h *transitionHandler) OnError(err error) {}

var _ StateMachineEngine = &stateMachineEngine{}

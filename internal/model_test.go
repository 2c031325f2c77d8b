package clusterspectator

import (
	"reflect"
	"testing"
)

func TestLiveInstance(t *testing.T) {

	record := NewRecord("node1")
	record.SetSimpleField(FieldSessionID, "session-42")

	instance := NewLiveInstance(record)

	if instance.InstanceName() != "node1" {
		t.Errorf("Expected instance name 'node1', but got '%s'", instance.InstanceName())
	}
	if instance.SessionID() != "session-42" {
		t.Errorf("Expected session 'session-42', but got '%s'", instance.SessionID())
	}
}

func TestInstanceConfig(t *testing.T) {

	record := NewRecord("node1")
	record.SetSimpleField(FieldHostName, "node1.internal")
	record.SetSimpleField(FieldPort, "50052")
	record.SetListField(FieldTagList, []string{"rack-a", "ssd"})

	config := NewInstanceConfig(record)

	if config.HostName() != "node1.internal" {
		t.Errorf("Expected host 'node1.internal', but got '%s'", config.HostName())
	}
	if config.Port() != 50052 {
		t.Errorf("Expected port 50052, but got %d", config.Port())
	}
	if !reflect.DeepEqual(config.Tags(), []string{"rack-a", "ssd"}) {
		t.Errorf("Expected tags [rack-a ssd], but got %v", config.Tags())
	}

	// An absent ENABLED field counts as enabled.
	if !config.Enabled() {
		t.Errorf("Expected an instance without an ENABLED field to be enabled")
	}

	record.SetSimpleField(FieldEnabled, "false")
	if config.Enabled() {
		t.Errorf("Expected an instance with ENABLED=false to be disabled")
	}

	record.SetSimpleField(FieldPort, "not-a-port")
	if config.Port() != 0 {
		t.Errorf("Expected an unparseable port to read as 0, but got %d", config.Port())
	}
}

func TestExternalView(t *testing.T) {

	record := NewRecord("db")
	record.SetSimpleField(FieldStateModelDef, "MasterSlave")
	record.SetMapField("db_1", map[string]string{"node2": "MASTER"})
	record.SetMapField("db_0", map[string]string{"node1": "MASTER", "node2": "SLAVE"})

	view := NewExternalView(record)

	if view.ResourceName() != "db" {
		t.Errorf("Expected resource 'db', but got '%s'", view.ResourceName())
	}
	if view.StateModelDef() != "MasterSlave" {
		t.Errorf("Expected state model 'MasterSlave', but got '%s'", view.StateModelDef())
	}

	if !reflect.DeepEqual(view.Partitions(), []string{"db_0", "db_1"}) {
		t.Errorf("Expected sorted partitions [db_0 db_1], but got %v", view.Partitions())
	}

	if view.State("db_0", "node2") != "SLAVE" {
		t.Errorf("Expected node2 to host db_0 as SLAVE, but got '%s'", view.State("db_0", "node2"))
	}
	if view.State("db_9", "node1") != "" {
		t.Errorf("Expected an empty state for an unknown partition, but got '%s'", view.State("db_9", "node1"))
	}
	if view.StateMap("db_9") != nil {
		t.Errorf("Expected a nil state map for an unknown partition")
	}
}

func TestRecordString(t *testing.T) {

	record := NewRecord("node1")
	record.SetSimpleField("b", "2")
	record.SetSimpleField("a", "1")

	first := record.String()
	for i := 0; i < 10; i++ {
		if record.String() != first {
			t.Errorf("Expected the record dump to be deterministic, but it varied")
		}
	}
}

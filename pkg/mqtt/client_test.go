package mqtt

import "testing"

func TestTopicsMatch(t *testing.T) {
	tests := []struct {
		filter string
		topic  string
		want   bool
	}{
		{"agv/v1/command/remote", "agv/v1/command/remote", true},
		{"agv/v1/command/+", "agv/v1/command/remote", true},
		{"agv/v1/command/+", "agv/v1/command/remote/extra", false},
		{"agv/v1/#", "agv/v1/ros_data/battery/voltage", true},
		{"agv/v1/ros_data/+/voltage", "agv/v1/ros_data/battery/voltage", true},
		{"agv/v1/ros_data/+/voltage", "agv/v1/ros_data/battery/current", false},
		{"agv/v1/command", "agv/v1/command/remote", false},
		{"+", "agv", true},
		{"#", "agv/v1/anything/at/all", true},
	}

	for _, tt := range tests {
		if got := topicsMatch(tt.filter, tt.topic); got != tt.want {
			t.Errorf("topicsMatch(%q, %q) = %v, want %v", tt.filter, tt.topic, got, tt.want)
		}
	}
}

func TestTopicFilterSharedSubscription(t *testing.T) {
	if got := topicFilter("$share/group/agv/v1/command/+"); got != "agv/v1/command/+" {
		t.Errorf("topicFilter stripped to %q", got)
	}
	if got := topicFilter("agv/v1/command/+"); got != "agv/v1/command/+" {
		t.Errorf("non-shared filter changed to %q", got)
	}
}

func TestClientConfigValidate(t *testing.T) {
	cfg := &ClientConfig{}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for missing broker url")
	}

	cfg.BrokerURL = "tcp://localhost:1883"
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

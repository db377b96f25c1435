package card

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/google/uuid"
)

func TestIdentifier_Key(t *testing.T) {
	tests := []struct {
		name string
		id   Identifier
		want string
	}{
		{"single", ByName("Opt"), "name=Opt"},
		{"sorted", BySetNumber("neo", "12"), "collector_number=12:set=neo"},
		{"empty", Identifier{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.id.Key(); got != tt.want {
				t.Errorf("Key() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFromRecord_DropsEmptyValues(t *testing.T) {
	id := FromRecord(map[string]string{
		"name":             "Opt",
		"set":              "",
		"collector_number": "",
	})

	if len(id) != 1 || id["name"] != "Opt" {
		t.Errorf("FromRecord() = %v, want only name", id)
	}
}

func TestIdentifier_Validate(t *testing.T) {
	tests := []struct {
		name    string
		id      Identifier
		wantErr bool
	}{
		{"by id", ByID(uuid.New()), false},
		{"by name", ByName("Opt"), false},
		{"by mtgo id", ByMTGOID(54957), false},
		{"empty", Identifier{}, true},
		{"bad uuid", Identifier{KeyID: "not-a-uuid"}, true},
		{"bad oracle id", Identifier{KeyOracleID: "x"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.id.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestIdentifier_UnmarshalJSON_NumericValues(t *testing.T) {
	var id Identifier
	if err := json.Unmarshal([]byte(`{"multiverse_id": 409574, "name": "Opt"}`), &id); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	want := Identifier{KeyMultiverseID: "409574", KeyName: "Opt"}
	if !reflect.DeepEqual(id, want) {
		t.Errorf("Unmarshal() = %v, want %v", id, want)
	}
}

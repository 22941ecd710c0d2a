//nolint:thelper,whitespace,lll,funlen // ok for tests
package state

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/mpapenbr/f1-race-engineer/pkg/packet"
)

func TestParseBindings(t *testing.T) {
	type args struct {
		specs []string
	}
	tests := []struct {
		name    string
		args    args
		want    []Binding
		wantErr bool
	}{
		{
			name: "empty yields player",
			args: args{nil},
			want: []Binding{{DriverID: "player", Slot: SlotPlayer}},
		},
		{
			name: "duo",
			args: args{[]string{"alice=player", " bob=secondary "}},
			want: []Binding{
				{DriverID: "alice", Slot: SlotPlayer},
				{DriverID: "bob", Slot: SlotSecondary},
			},
		},
		{
			name: "fixed car",
			args: args{[]string{"max=car:21"}},
			want: []Binding{{DriverID: "max", Slot: SlotCar, CarIndex: 21}},
		},
		{name: "car index out of range", args: args{[]string{"max=car:22"}}, wantErr: true},
		{name: "missing target", args: args{[]string{"max"}}, wantErr: true},
		{name: "missing id", args: args{[]string{"=player"}}, wantErr: true},
		{name: "unknown slot", args: args{[]string{"max=third"}}, wantErr: true},
		{name: "duplicate driver", args: args{[]string{"a=player", "a=secondary"}}, wantErr: true},
		{name: "too many", args: args{[]string{"a=player", "b=secondary", "c=car:3"}}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseBindings(tt.args.specs)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseBindings() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				if !errors.Is(err, ErrInvalidBinding) {
					t.Errorf("ParseBindings() error = %v, want ErrInvalidBinding", err)
				}
				return
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseBindings() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestBinding_resolve(t *testing.T) {
	h := &packet.Header{PlayerCarIndex: 3, SecondaryPlayerCarIndex: packet.InvalidCarIndex}
	tests := []struct {
		name   string
		b      Binding
		want   uint8
		wantOk bool
	}{
		{"player", Binding{Slot: SlotPlayer}, 3, true},
		{"secondary unused", Binding{Slot: SlotSecondary}, 0, false},
		{"fixed", Binding{Slot: SlotCar, CarIndex: 9}, 9, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.b.resolve(h)
			if got != tt.want || ok != tt.wantOk {
				t.Errorf("resolve() = %v, %v, want %v, %v", got, ok, tt.want, tt.wantOk)
			}
		})
	}
}

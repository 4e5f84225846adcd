package pic

import (
	"reflect"
	"testing"
)

type portWrite struct {
	port  uint16
	value uint8
}

type portWriterMock struct {
	writes []portWrite
}

func (m *portWriterMock) PortWrite8(port uint16, value uint8) {
	m.writes = append(m.writes, portWrite{port, value})
}

func TestRemap(t *testing.T) {
	specs := []struct {
		offset uint8
		exp    []portWrite
	}{
		{
			0x20,
			[]portWrite{
				{0x20, 0x11}, {0xa0, 0x11},
				{0x21, 0x20}, {0xa1, 0x28},
				{0x21, 0x04}, {0xa1, 0x02},
				{0x21, 0x01}, {0xa1, 0x01},
				{0x21, 0x00}, {0xa1, 0x00},
			},
		},
		{
			0x30,
			[]portWrite{
				{0x20, 0x11}, {0xa0, 0x11},
				{0x21, 0x30}, {0xa1, 0x38},
				{0x21, 0x04}, {0xa1, 0x02},
				{0x21, 0x01}, {0xa1, 0x01},
				{0x21, 0x00}, {0xa1, 0x00},
			},
		},
	}

	for specIndex, spec := range specs {
		var mock portWriterMock
		pair := NewPair(&mock)
		pair.Remap(spec.offset)

		if !reflect.DeepEqual(mock.writes, spec.exp) {
			t.Errorf("[spec %d] expected port writes:\n%v\ngot:\n%v", specIndex, spec.exp, mock.writes)
		}
	}
}

func TestAcknowledge(t *testing.T) {
	specs := []struct {
		line uint8
		exp  []portWrite
	}{
		{0, []portWrite{{0x20, 0x20}}},
		{3, []portWrite{{0x20, 0x20}}},
		{7, []portWrite{{0x20, 0x20}}},
		{8, []portWrite{{0x20, 0x20}, {0xa0, 0x20}}},
		{9, []portWrite{{0x20, 0x20}, {0xa0, 0x20}}},
		{15, []portWrite{{0x20, 0x20}, {0xa0, 0x20}}},
	}

	for specIndex, spec := range specs {
		var mock portWriterMock
		pair := NewPair(&mock)
		pair.Acknowledge(spec.line)

		if !reflect.DeepEqual(mock.writes, spec.exp) {
			t.Errorf("[spec %d] expected port writes:\n%v\ngot:\n%v", specIndex, spec.exp, mock.writes)
		}
	}
}

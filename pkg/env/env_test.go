package env

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/openeeg/headband.go/pkg/layout"
)

func TestLayoutDefault(t *testing.T) {
	conf := &Config{}
	l, err := conf.Layout()
	require.NoError(t, err)
	require.Equal(t, layout.Default(), l)
}

func TestLayoutFromFile(t *testing.T) {
	dir, err := ioutil.TempDir("", "headband")
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	fn := filepath.Join(dir, "layout.yaml")
	require.NoError(t, ioutil.WriteFile(fn, []byte("queues:\n- name: ble\n  offset: 0\n  capacity: 64\n"), 0644))

	l, err := (&Config{LayoutFile: fn}).Layout()
	require.NoError(t, err)
	q, ok := l.Queue("ble")
	require.True(t, ok)
	require.Equal(t, uint32(64), q.Capacity)
}

func TestMachineIDStable(t *testing.T) {
	id := MachineID()
	require.NotEmpty(t, id)
	require.Equal(t, id, MachineID())
}

package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/fleet-console/fleet-console/internal/models"
)

func readRows(t *testing.T, data []byte) [][]string {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{DevicesSheet}, f.GetSheetList())

	rows, err := f.GetRows(DevicesSheet)
	require.NoError(t, err)
	return rows
}

func TestDevicesWorkbook(t *testing.T) {
	devices := models.DefaultDevices()
	// only TPL-002 survives, so DEV-001's reference dangles
	templates := models.DefaultTemplates()[1:]

	data, err := DevicesWorkbook(devices, templates)
	require.NoError(t, err)

	rows := readRows(t, data)
	require.Len(t, rows, 4)
	assert.Equal(t, DeviceHeader, rows[0])

	first := rows[1]
	assert.Equal(t, "DEV-001", first[0])
	assert.Equal(t, "北厅温度传感器", first[1])
	assert.Equal(t, "Sensor", first[2])
	assert.Equal(t, models.DefaultTemplateName, first[5])
	assert.Equal(t, "否", first[6])
	assert.Equal(t, "环境监控, 北厅", first[8])
	assert.Equal(t, "access_token", first[9])
	assert.Equal(t, "39.9042", first[10])
	assert.Equal(t, "85", first[13])
	assert.Equal(t, "2023-10-01 08:00:00", first[14])

	second := rows[2]
	assert.Equal(t, "DEV-002", second[0])
	assert.Equal(t, "是", second[6])
	assert.Equal(t, "mqtt_basic", second[9])
}

func TestDevicesWorkbook_Empty(t *testing.T) {
	data, err := DevicesWorkbook(nil, nil)
	require.NoError(t, err)

	rows := readRows(t, data)
	require.Len(t, rows, 1)
	assert.Equal(t, DeviceHeader, rows[0])
}

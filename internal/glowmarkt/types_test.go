package glowmarkt

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDataSourceTypeInfoDecoding(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  DataSourceTypeInfo
	}{
		{
			name:  "bare string",
			input: `"electricity"`,
			want:  DataSourceTypeInfo{Type: "electricity"},
		},
		{
			name:  "structured object",
			input: `{"type":"gas","unit":"kWh","method":"sum","isCost":false}`,
			want:  DataSourceTypeInfo{Type: "gas", Unit: "kWh", Method: "sum"},
		},
		{
			name:  "cost object",
			input: `{"type":"electricity","isCost":true}`,
			want:  DataSourceTypeInfo{Type: "electricity", IsCost: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got DataSourceTypeInfo
			require.NoError(t, json.Unmarshal([]byte(tt.input), &got))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDataSourceTypeInfoRejectsMalformed(t *testing.T) {
	var got DataSourceTypeInfo
	assert.Error(t, json.Unmarshal([]byte(`42`), &got))
	assert.Error(t, json.Unmarshal([]byte(`{"type":42}`), &got))
}

func TestDeviceDecoding(t *testing.T) {
	payload := `{
		"deviceId": "dev-1",
		"description": "Smart Meter",
		"active": true,
		"hardwareId": "hw-1",
		"deviceTypeId": "type-1",
		"ownerId": "owner-1",
		"hardwareIds": {"MPAN": "123456", "serial": "A1B2"},
		"protocol": {
			"protocol": "DCC",
			"sensors": [
				{"protocolId": "p-0", "resourceId": "res-1", "resourceTypeId": "rt-1"},
				{"protocolId": "p-1", "resourceId": "res-2", "resourceTypeId": "rt-2"}
			]
		}
	}`

	var device Device
	require.NoError(t, json.Unmarshal([]byte(payload), &device))

	assert.Equal(t, "dev-1", device.ID)
	assert.Equal(t, "hw-1", device.HardwareID)
	assert.True(t, device.Active)
	assert.Equal(t, map[string]string{"MPAN": "123456", "serial": "A1B2"}, device.HardwareIDs)
	require.Len(t, device.Protocol.Sensors, 2)
	assert.Equal(t, "res-1", device.Protocol.Sensors[0].ResourceID)
	assert.Equal(t, "rt-2", device.Protocol.Sensors[1].ResourceTypeID)
}

func TestResourceDecodingWithStringTypeInfo(t *testing.T) {
	payload := `{
		"resourceId": "res-1",
		"resourceTypeId": "rt-1",
		"ownerId": "owner-1",
		"name": "electricity consumption",
		"active": true,
		"classifier": "electricity.consumption",
		"baseUnit": "kWh",
		"dataSourceResourceTypeInfo": "electricity"
	}`

	var resource Resource
	require.NoError(t, json.Unmarshal([]byte(payload), &resource))

	assert.Equal(t, "res-1", resource.ID)
	assert.Equal(t, "electricity.consumption", resource.Classifier)
	require.NotNil(t, resource.TypeInfo)
	assert.Equal(t, "electricity", resource.TypeInfo.Type)
}

func TestVirtualEntityDecoding(t *testing.T) {
	payload := `{
		"veId": "ve-1",
		"veTypeId": "vet-1",
		"ownerId": "owner-1",
		"name": "Home",
		"active": true,
		"resources": [{"resourceId": "res-1", "resourceTypeId": "rt-1"}]
	}`

	var entity VirtualEntity
	require.NoError(t, json.Unmarshal([]byte(payload), &entity))

	assert.Equal(t, "ve-1", entity.ID)
	require.Len(t, entity.Resources, 1)
	assert.Equal(t, "res-1", entity.Resources[0].ResourceID)
}

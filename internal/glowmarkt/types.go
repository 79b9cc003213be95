package glowmarkt

import (
	"encoding/json"
	"time"
)

// Sensor ties one protocol slot to the resource type it feeds. On device
// records the API also fills in the concrete resource id; on device type
// records ResourceID stays empty.
type Sensor struct {
	ProtocolID     string `json:"protocolId"`
	ResourceID     string `json:"resourceId,omitempty"`
	ResourceTypeID string `json:"resourceTypeId"`
}

// Protocol describes how a device reports and the sensors behind it.
type Protocol struct {
	Protocol string   `json:"protocol,omitempty"`
	Sensors  []Sensor `json:"sensors"`
}

// Device is a physical meter or display registered to the account.
type Device struct {
	ID           string            `json:"deviceId"`
	Description  string            `json:"description"`
	Active       bool              `json:"active"`
	HardwareID   string            `json:"hardwareId"`
	DeviceTypeID string            `json:"deviceTypeId"`
	OwnerID      string            `json:"ownerId"`
	HardwareIDs  map[string]string `json:"hardwareIds,omitempty"`
	Tags         []string          `json:"tags,omitempty"`
	Protocol     Protocol          `json:"protocol"`
	UpdatedAt    time.Time         `json:"updatedAt,omitempty"`
	CreatedAt    time.Time         `json:"createdAt,omitempty"`
}

// DeviceType describes a class of devices and the resource types its
// sensors produce.
type DeviceType struct {
	ID          string   `json:"deviceTypeId"`
	Description string   `json:"description"`
	Active      bool     `json:"active"`
	Protocol    Protocol `json:"protocol"`
}

// Resource is one measured quantity, for example electricity consumption,
// fed by a device sensor and queryable for readings.
type Resource struct {
	ID             string              `json:"resourceId"`
	TypeID         string              `json:"resourceTypeId"`
	OwnerID        string              `json:"ownerId"`
	Name           string              `json:"name"`
	Description    string              `json:"description,omitempty"`
	Label          string              `json:"label,omitempty"`
	Active         bool                `json:"active"`
	Classifier     string              `json:"classifier,omitempty"`
	BaseUnit       string              `json:"baseUnit,omitempty"`
	DataSourceType string              `json:"dataSourceType,omitempty"`
	TypeInfo       *DataSourceTypeInfo `json:"dataSourceResourceTypeInfo,omitempty"`
	UnitInfo       json.RawMessage     `json:"dataSourceUnitInfo,omitempty"`
	UpdatedAt      time.Time           `json:"updatedAt,omitempty"`
	CreatedAt      time.Time           `json:"createdAt,omitempty"`
}

// ResourceType is the catalogue entry behind a resource.
type ResourceType struct {
	ID             string              `json:"resourceTypeId"`
	Name           string              `json:"name"`
	Description    string              `json:"description,omitempty"`
	Label          string              `json:"label,omitempty"`
	Active         bool                `json:"active"`
	Classifier     string              `json:"classifier,omitempty"`
	BaseUnit       string              `json:"baseUnit,omitempty"`
	DataSourceType string              `json:"dataSourceType,omitempty"`
	TypeInfo       *DataSourceTypeInfo `json:"dataSourceResourceTypeInfo,omitempty"`
	Units          json.RawMessage     `json:"units,omitempty"`
	Storage        json.RawMessage     `json:"storage,omitempty"`
}

// ResourceRef points a virtual entity at one of its member resources.
type ResourceRef struct {
	ResourceID     string `json:"resourceId"`
	ResourceTypeID string `json:"resourceTypeId"`
}

// VirtualEntity is an account-level grouping of resources, typically one
// per supply.
type VirtualEntity struct {
	ID        string        `json:"veId"`
	TypeID    string        `json:"veTypeId"`
	OwnerID   string        `json:"ownerId"`
	Name      string        `json:"name"`
	Active    bool          `json:"active"`
	Resources []ResourceRef `json:"resources"`
}

// DataSourceTypeInfo describes a resource's upstream data source. The API is
// inconsistent here: some records carry a bare string naming the type, others
// a structured object. Both shapes decode into this struct.
type DataSourceTypeInfo struct {
	Type   string `json:"type"`
	Unit   string `json:"unit,omitempty"`
	Method string `json:"method,omitempty"`
	IsCost bool   `json:"isCost,omitempty"`
}

func (i *DataSourceTypeInfo) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*i = DataSourceTypeInfo{Type: s}
		return nil
	}
	type plain DataSourceTypeInfo
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*i = DataSourceTypeInfo(p)
	return nil
}

// Reading is one interval-aggregated meter value. End is always Start plus
// the period length of the request that produced it.
type Reading struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Value float64   `json:"value"`
}

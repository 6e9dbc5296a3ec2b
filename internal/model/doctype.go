package model

import "time"

const (
	DocTypeCargoRegistration = "Cargo Registration"
	DocTypeCargoDetail       = "Cargo Detail"
	DocTypeManifest          = "Manifest"
	DocTypeSalesInvoice      = "Sales Invoice"
	DocTypeTransportSettings = "Transport Settings"

	ModuleFleet = "VSD Fleet MS"
)

// DocType is a schema registry entry recording which module owns a document type
type DocType struct {
	Name      string    `gorm:"type:varchar(140);primaryKey" json:"name"`
	Module    string    `gorm:"type:varchar(140);index" json:"module"`
	IsSingle  bool      `gorm:"default:false" json:"is_single"`
	Custom    bool      `gorm:"default:false" json:"custom"`
	UpdatedAt time.Time `json:"updated_at"`
}

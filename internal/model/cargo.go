package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DocStatus values shared by every submittable document
const (
	DocStatusDraft     = 0
	DocStatusSubmitted = 1
	DocStatusCancelled = 2
)

// TransporterType enum constants
const (
	TransporterInHouse       = "In House"
	TransporterSubContractor = "Sub-Contractor"
)

// CargoRegistration groups a shipment's billable line-items for one customer
type CargoRegistration struct {
	ID        uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string        `gorm:"type:varchar(140);uniqueIndex;not null" json:"name"`
	Customer  string        `gorm:"type:varchar(140);not null;index" json:"customer"`
	Company   string        `gorm:"type:varchar(140);index" json:"company"`
	DocStatus int           `gorm:"column:docstatus;not null;default:0;index" json:"docstatus"`
	Details   []CargoDetail `gorm:"foreignKey:ParentID;constraint:OnDelete:CASCADE" json:"details"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

func (r *CargoRegistration) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// CargoDetail is one billable cargo leg inside a registration.
// Invoice holds the sales invoice name once billed; NULL and "" both mean unbilled.
type CargoDetail struct {
	ID                      uuid.UUID           `gorm:"type:uuid;primaryKey" json:"id"`
	ParentID                uuid.UUID           `gorm:"type:uuid;not null;index" json:"parent_id"`
	Idx                     int                 `gorm:"not null;default:0" json:"idx"`
	DocStatus               int                 `gorm:"column:docstatus;not null;default:0;index" json:"docstatus"`
	ServiceItem             string              `gorm:"type:varchar(140);not null" json:"service_item"`
	Rate                    decimal.Decimal     `gorm:"type:decimal(18,4);not null;default:0" json:"rate"`
	Currency                string              `gorm:"type:varchar(10)" json:"currency"`
	CargoRoute              string              `gorm:"type:varchar(255)" json:"cargo_route"`
	CargoType               string              `gorm:"type:varchar(100)" json:"cargo_type"`
	NetWeight               decimal.NullDecimal `gorm:"type:decimal(18,4)" json:"net_weight"` // kg
	NumberOfPackages        int                 `gorm:"default:0" json:"number_of_packages"`
	ManifestNumber          string              `gorm:"type:varchar(140);index" json:"manifest_number"`
	TransporterType         string              `gorm:"type:varchar(30)" json:"transporter_type"` // In House, Sub-Contractor
	AssignedTruck           string              `gorm:"type:varchar(140)" json:"assigned_truck"`
	TruckNumber             string              `gorm:"type:varchar(140)" json:"truck_number"`
	DriverName              string              `gorm:"type:varchar(255)" json:"driver_name"`
	CreatedTrip             string              `gorm:"type:varchar(140)" json:"created_trip"`
	CargoDestinationCity    string              `gorm:"type:varchar(140)" json:"cargo_destination_city"`
	CargoDestinationCountry string              `gorm:"type:varchar(140)" json:"cargo_destination_country"`

	// Extension columns; older schemas may not carry them.
	AllowBillOnWeight bool   `gorm:"column:allow_bill_on_weight;default:false" json:"allow_bill_on_weight"`
	BillUOM           string `gorm:"column:bill_uom;type:varchar(50)" json:"bill_uom"`

	Invoice   *string   `gorm:"type:varchar(140);index" json:"invoice"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (d *CargoDetail) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

// IsInvoiced reports whether the row already carries an invoice reference
func (d *CargoDetail) IsInvoiced() bool {
	return d.Invoice != nil && *d.Invoice != ""
}

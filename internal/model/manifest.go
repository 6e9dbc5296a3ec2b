package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Manifest assigns a vehicle and driver to cargo.
// In House manifests use the Truck* / DriverName fields, Sub-Contractor ones the SubContractor* fields.
type Manifest struct {
	ID                               uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name                             string    `gorm:"type:varchar(140);uniqueIndex;not null" json:"name"`
	TransporterType                  string    `gorm:"type:varchar(30)" json:"transporter_type"`
	Truck                            string    `gorm:"type:varchar(140)" json:"truck"`
	TruckLicensePlateNo              string    `gorm:"type:varchar(50)" json:"truck_license_plate_no"`
	DriverName                       string    `gorm:"type:varchar(255)" json:"driver_name"`
	SubContractorTruckLicensePlateNo string    `gorm:"type:varchar(50)" json:"sub_contractor_truck_license_plate_no"`
	SubContractorDriverName          string    `gorm:"type:varchar(255)" json:"sub_contractor_driver_name"`
	CreatedAt                        time.Time `json:"created_at"`
	UpdatedAt                        time.Time `json:"updated_at"`
}

func (m *Manifest) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

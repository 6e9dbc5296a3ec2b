package service

import (
	"context"
	"html"
	"strings"

	"fleetbilling/internal/logger"
	"fleetbilling/internal/model"
	"fleetbilling/internal/repository"

	"github.com/sirupsen/logrus"
)

const (
	labelVehicle    = "<b>VEHICLE NUMBER:</b> "
	labelTrip       = "<br><b>TRIP:</b> "
	labelDriverName = "<br><b>DRIVER NAME:</b> "
	labelDriver     = "<br><b>DRIVER:</b> "
	labelRoute      = "<br><b>ROUTE:</b> "
)

// DescriptionBuilder renders the HTML description of an invoice line,
// pulling vehicle and driver from the cargo's manifest when one is referenced.
type DescriptionBuilder struct {
	manifests repository.ManifestRepository
	log       logrus.FieldLogger
}

func NewDescriptionBuilder(manifests repository.ManifestRepository, log logrus.FieldLogger) *DescriptionBuilder {
	return &DescriptionBuilder{manifests: manifests, log: log}
}

// Build never fails: a manifest that cannot be read is logged and left out.
func (b *DescriptionBuilder) Build(ctx context.Context, detail model.CargoDetail) string {
	var manifest *model.Manifest
	if detail.ManifestNumber != "" {
		m, err := b.manifests.FindByName(ctx, detail.ManifestNumber)
		if err != nil {
			logger.LogError(b.log, "DescriptionBuilder", "fetch manifest", detail.ManifestNumber, err)
		} else {
			manifest = m
		}
	}
	return DescribeCargo(detail, manifest)
}

// DescribeCargo builds the description from a cargo detail and its (optional) manifest.
// Output order is fixed: vehicle / trip / driver lines, then manifest lines, then route.
func DescribeCargo(detail model.CargoDetail, manifest *model.Manifest) string {
	var sb strings.Builder

	switch detail.TransporterType {
	case model.TransporterInHouse:
		if detail.AssignedTruck != "" {
			sb.WriteString(labelVehicle + html.EscapeString(detail.AssignedTruck))
		}
		if detail.CreatedTrip != "" {
			sb.WriteString(labelTrip + html.EscapeString(detail.CreatedTrip))
		}
	case model.TransporterSubContractor:
		if detail.TruckNumber != "" {
			sb.WriteString(labelVehicle + html.EscapeString(detail.TruckNumber))
		}
		if detail.DriverName != "" {
			sb.WriteString(labelDriverName + html.EscapeString(detail.DriverName))
		}
	}

	if manifest != nil {
		switch {
		case manifest.TransporterType == model.TransporterInHouse && manifest.TruckLicensePlateNo != "":
			if sb.Len() == 0 {
				sb.WriteString(labelVehicle + html.EscapeString(manifest.TruckLicensePlateNo))
			}
			driver := manifest.DriverName
			if driver == "" {
				driver = "N/A"
			}
			sb.WriteString(labelDriver + html.EscapeString(driver))
		case manifest.TransporterType == model.TransporterSubContractor:
			if sb.Len() == 0 {
				sb.WriteString(labelVehicle + html.EscapeString(manifest.SubContractorTruckLicensePlateNo))
				sb.WriteString(labelDriverName + html.EscapeString(manifest.SubContractorDriverName))
			}
		}
	}

	if detail.CargoRoute != "" {
		sb.WriteString(labelRoute + html.EscapeString(detail.CargoRoute))
	}

	return sb.String()
}

package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"fleetbilling/internal/model"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

func TestDescribeCargo(t *testing.T) {
	inHouseManifest := &model.Manifest{
		TransporterType:     model.TransporterInHouse,
		TruckLicensePlateNo: "T 123 ABC",
		DriverName:          "Juma",
	}
	subManifest := &model.Manifest{
		TransporterType:                  model.TransporterSubContractor,
		SubContractorTruckLicensePlateNo: "SC 9",
		SubContractorDriverName:          "Neema",
	}

	tests := []struct {
		name     string
		detail   model.CargoDetail
		manifest *model.Manifest
		want     string
	}{
		{
			name: "in house truck and trip then route",
			detail: model.CargoDetail{
				TransporterType: model.TransporterInHouse,
				AssignedTruck:   "TRK-7",
				CreatedTrip:     "TRIP-01",
				CargoRoute:      "DAR-LUN",
			},
			want: "<b>VEHICLE NUMBER:</b> TRK-7<br><b>TRIP:</b> TRIP-01<br><b>ROUTE:</b> DAR-LUN",
		},
		{
			name: "sub-contractor truck and driver",
			detail: model.CargoDetail{
				TransporterType: model.TransporterSubContractor,
				TruckNumber:     "SC 1",
				DriverName:      "Ali",
			},
			want: "<b>VEHICLE NUMBER:</b> SC 1<br><b>DRIVER NAME:</b> Ali",
		},
		{
			name:     "in house manifest fills an empty description",
			detail:   model.CargoDetail{CargoRoute: "DAR-LUN"},
			manifest: inHouseManifest,
			want:     "<b>VEHICLE NUMBER:</b> T 123 ABC<br><b>DRIVER:</b> Juma<br><b>ROUTE:</b> DAR-LUN",
		},
		{
			name: "in house manifest always adds the driver",
			detail: model.CargoDetail{
				TransporterType: model.TransporterInHouse,
				AssignedTruck:   "TRK-7",
			},
			manifest: inHouseManifest,
			want:     "<b>VEHICLE NUMBER:</b> TRK-7<br><b>DRIVER:</b> Juma",
		},
		{
			name:   "in house manifest without driver",
			detail: model.CargoDetail{},
			manifest: &model.Manifest{
				TransporterType:     model.TransporterInHouse,
				TruckLicensePlateNo: "T 1",
			},
			want: "<b>VEHICLE NUMBER:</b> T 1<br><b>DRIVER:</b> N/A",
		},
		{
			name:     "in house manifest without plate adds nothing",
			detail:   model.CargoDetail{CargoRoute: "R"},
			manifest: &model.Manifest{TransporterType: model.TransporterInHouse, DriverName: "Juma"},
			want:     "<br><b>ROUTE:</b> R",
		},
		{
			name:     "sub-contractor manifest fills an empty description",
			detail:   model.CargoDetail{},
			manifest: subManifest,
			want:     "<b>VEHICLE NUMBER:</b> SC 9<br><b>DRIVER NAME:</b> Neema",
		},
		{
			name: "sub-contractor manifest ignored when description exists",
			detail: model.CargoDetail{
				TransporterType: model.TransporterSubContractor,
				TruckNumber:     "SC 1",
			},
			manifest: subManifest,
			want:     "<b>VEHICLE NUMBER:</b> SC 1",
		},
		{
			name: "values are escaped",
			detail: model.CargoDetail{
				TransporterType: model.TransporterInHouse,
				AssignedTruck:   "<script>",
				CargoRoute:      "A & B",
			},
			want: "<b>VEHICLE NUMBER:</b> &lt;script&gt;<br><b>ROUTE:</b> A &amp; B",
		},
		{
			name:   "nothing known",
			detail: model.CargoDetail{},
			want:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DescribeCargo(tt.detail, tt.manifest); got != tt.want {
				t.Errorf("DescribeCargo() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDescribeCargo_RouteAlwaysLast(t *testing.T) {
	got := DescribeCargo(model.CargoDetail{
		TransporterType: model.TransporterInHouse,
		AssignedTruck:   "TRK-7",
		CreatedTrip:     "TRIP-01",
		CargoRoute:      "DAR-LUN",
	}, &model.Manifest{TransporterType: model.TransporterInHouse, TruckLicensePlateNo: "P", DriverName: "D"})

	route := strings.Index(got, labelRoute)
	if route < 0 || route < strings.Index(got, labelDriver) || route < strings.Index(got, labelTrip) {
		t.Errorf("route must follow vehicle/trip/driver lines: %q", got)
	}
}

type failingManifests struct{}

func (failingManifests) FindByName(context.Context, string) (*model.Manifest, error) {
	return nil, errors.New("connection reset")
}

func TestDescriptionBuilder_ManifestFailureIsLogged(t *testing.T) {
	log, hook := test.NewNullLogger()
	b := NewDescriptionBuilder(failingManifests{}, log)

	got := b.Build(context.Background(), model.CargoDetail{
		TransporterType: model.TransporterInHouse,
		AssignedTruck:   "TRK-7",
		ManifestNumber:  "MNF-001",
	})
	if got != "<b>VEHICLE NUMBER:</b> TRK-7" {
		t.Errorf("unexpected description %q", got)
	}

	entry := hook.LastEntry()
	if entry == nil || entry.Level != logrus.ErrorLevel {
		t.Fatalf("expected an error log entry, got %v", entry)
	}
	if entry.Data["input"] != "MNF-001" {
		t.Errorf("expected manifest name in log fields, got %v", entry.Data)
	}
}

package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"fleetbilling/internal/logger"
	"fleetbilling/internal/model"
	"fleetbilling/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// --- DTOs ---

type UninvoicedCargoFilter struct {
	Customer string `form:"customer"`
	Company  string `form:"company"`
}

// UninvoicedCargoResponse is one billable cargo row offered for invoicing
type UninvoicedCargoResponse struct {
	Name                    string  `json:"name"`
	Parent                  string  `json:"parent"`
	ServiceItem             string  `json:"service_item"`
	Rate                    string  `json:"rate"`
	Currency                string  `json:"currency"`
	CargoRoute              string  `json:"cargo_route"`
	CargoType               string  `json:"cargo_type"`
	NetWeight               *string `json:"net_weight"`
	NetWeightTonne          string  `json:"net_weight_tonne"`
	NumberOfPackages        int     `json:"number_of_packages"`
	ManifestNumber          string  `json:"manifest_number"`
	TransporterType         string  `json:"transporter_type"`
	AssignedTruck           string  `json:"assigned_truck"`
	TruckNumber             string  `json:"truck_number"`
	DriverName              string  `json:"driver_name"`
	CreatedTrip             string  `json:"created_trip"`
	CargoDestinationCity    string  `json:"cargo_destination_city"`
	CargoDestinationCountry string  `json:"cargo_destination_country"`
	TruckFromManifest       string  `json:"truck_from_manifest,omitempty"`
	TruckLicensePlate       string  `json:"truck_license_plate,omitempty"`
	DriverFromManifest      string  `json:"driver_from_manifest,omitempty"`
}

// CargoLookupResult carries the rows plus an optional non-fatal notice for the user
type CargoLookupResult struct {
	Details []UninvoicedCargoResponse
	Notice  string
}

// --- Interface ---

type CargoService interface {
	GetUninvoicedCargoDetails(ctx context.Context, filter UninvoicedCargoFilter) (CargoLookupResult, error)
	ClearInvoiceReference(ctx context.Context, invoiceName string) (int64, error)
	OnSalesInvoiceCancel(ctx context.Context, invoice *model.SalesInvoice) error
}

type cargoService struct {
	cargoRepo    repository.CargoRepository
	manifestRepo repository.ManifestRepository
	auditRepo    repository.AuditRepository
	txManager    repository.TransactionManager
	log          logrus.FieldLogger
}

func NewCargoService(
	cargoRepo repository.CargoRepository,
	manifestRepo repository.ManifestRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	log logrus.FieldLogger,
) CargoService {
	return &cargoService{
		cargoRepo:    cargoRepo,
		manifestRepo: manifestRepo,
		auditRepo:    auditRepo,
		txManager:    txManager,
		log:          log,
	}
}

// --- Implementation ---

func (s *cargoService) GetUninvoicedCargoDetails(ctx context.Context, filter UninvoicedCargoFilter) (CargoLookupResult, error) {
	customer := strings.TrimSpace(filter.Customer)
	if customer == "" {
		return CargoLookupResult{}, newValidationError(ErrCustomerRequired, "")
	}

	regs, err := s.cargoRepo.ListSubmittedRegistrations(ctx, repository.RegistrationFilter{
		Customer: customer,
		Company:  strings.TrimSpace(filter.Company),
	})
	if err != nil {
		return CargoLookupResult{}, fmt.Errorf("failed to fetch cargo registrations: %w", err)
	}

	if len(regs) == 0 {
		return CargoLookupResult{
			Details: []UninvoicedCargoResponse{},
			Notice:  fmt.Sprintf("No Cargo Registrations found for customer %s", customer),
		}, nil
	}

	parentIDs := make([]uuid.UUID, 0, len(regs))
	position := make(map[uuid.UUID]int, len(regs))
	names := make(map[uuid.UUID]string, len(regs))
	for i, reg := range regs {
		parentIDs = append(parentIDs, reg.ID)
		position[reg.ID] = i
		names[reg.ID] = reg.Name
	}

	details, err := s.cargoRepo.ListUninvoicedDetails(ctx, parentIDs)
	if err != nil {
		return CargoLookupResult{}, fmt.Errorf("failed to fetch cargo details: %w", err)
	}

	// keep registration order, rows already sorted by idx
	sort.SliceStable(details, func(i, j int) bool {
		return position[details[i].ParentID] < position[details[j].ParentID]
	})

	manifests := make(map[string]*model.Manifest)
	result := make([]UninvoicedCargoResponse, 0, len(details))
	for _, d := range details {
		row := toUninvoicedCargoResponse(d, names[d.ParentID])
		if d.ManifestNumber != "" {
			if m := s.manifestFor(ctx, manifests, d.ManifestNumber); m != nil {
				overlayManifest(&row, m)
			}
		}
		result = append(result, row)
	}

	return CargoLookupResult{Details: result}, nil
}

// manifestFor fetches each manifest once per lookup; failures are cached as nil.
func (s *cargoService) manifestFor(ctx context.Context, cache map[string]*model.Manifest, name string) *model.Manifest {
	if m, ok := cache[name]; ok {
		return m
	}
	m, err := s.manifestRepo.FindByName(ctx, name)
	if err != nil {
		logger.LogError(s.log, "CargoService", "fetch manifest", name, err)
		m = nil
	}
	cache[name] = m
	return m
}

func overlayManifest(row *UninvoicedCargoResponse, m *model.Manifest) {
	switch m.TransporterType {
	case model.TransporterInHouse:
		row.TruckFromManifest = m.Truck
		row.TruckLicensePlate = m.TruckLicensePlateNo
		row.DriverFromManifest = m.DriverName
	case model.TransporterSubContractor:
		row.TruckLicensePlate = m.SubContractorTruckLicensePlateNo
		row.DriverFromManifest = m.SubContractorDriverName
	}
}

// ClearInvoiceReference releases every cargo detail billed on invoiceName.
func (s *cargoService) ClearInvoiceReference(ctx context.Context, invoiceName string) (int64, error) {
	var cleared int64
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		n, err := s.cargoRepo.ClearInvoice(txCtx, invoiceName)
		if err != nil {
			return fmt.Errorf("failed to clear invoice reference: %w", err)
		}
		cleared = n
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.log.WithFields(logrus.Fields{"invoice": invoiceName, "cleared": cleared}).Info("cargo details released from invoice")
	return cleared, nil
}

// OnSalesInvoiceCancel is the on_cancel hook for sales invoices.
func (s *cargoService) OnSalesInvoiceCancel(ctx context.Context, invoice *model.SalesInvoice) error {
	cleared, err := s.ClearInvoiceReference(ctx, invoice.Name)
	if err != nil {
		return err
	}
	writeAuditLog(ctx, s.auditRepo, s.log, "", model.ActionUnlinkCargoDetails, invoice.ID.String(), invoice.Name, map[string]interface{}{
		"invoice": invoice.Name,
		"cleared": cleared,
	})
	return nil
}

// --- Mapping ---

func toUninvoicedCargoResponse(d model.CargoDetail, parent string) UninvoicedCargoResponse {
	resp := UninvoicedCargoResponse{
		Name:                    d.ID.String(),
		Parent:                  parent,
		ServiceItem:             d.ServiceItem,
		Rate:                    d.Rate.StringFixed(4),
		Currency:                d.Currency,
		CargoRoute:              d.CargoRoute,
		CargoType:               d.CargoType,
		NetWeightTonne:          NetWeightTonnes(d.NetWeight).String(),
		NumberOfPackages:        d.NumberOfPackages,
		ManifestNumber:          d.ManifestNumber,
		TransporterType:         d.TransporterType,
		AssignedTruck:           d.AssignedTruck,
		TruckNumber:             d.TruckNumber,
		DriverName:              d.DriverName,
		CreatedTrip:             d.CreatedTrip,
		CargoDestinationCity:    d.CargoDestinationCity,
		CargoDestinationCountry: d.CargoDestinationCountry,
	}
	if d.NetWeight.Valid {
		w := d.NetWeight.Decimal.StringFixed(4)
		resp.NetWeight = &w
	}
	return resp
}

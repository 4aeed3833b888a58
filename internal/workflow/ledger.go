package workflow

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/kiranshivaraju/fuelhaul/pkg/models"
)

// Reading is an odometer figure as typed by the driver. It accepts a JSON number or
// a JSON string so that malformed input reaches validation instead of failing decode.
type Reading string

func (r *Reading) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*r = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*r = Reading(s)
		return nil
	}
	*r = Reading(b)
	return nil
}

// Stamp is who recorded a piece of evidence and when.
type Stamp struct {
	At time.Time
	By string
}

// StartTripInput is the evidence for leaving the depot.
type StartTripInput struct {
	Odometer Reading  `json:"odometer"`
	Photos   []string `json:"photos"`
	Note     string   `json:"note"`
}

// WarehouseInput is the evidence that the cargo source authorized the order.
type WarehouseInput struct {
	AuthorizationNo string   `json:"authorization_no"`
	Photos          []string `json:"photos"`
	Note            string   `json:"note"`
}

// PickupInput is the evidence for loading product. Photos are grouped by document category.
type PickupInput struct {
	Odometer   Reading             `json:"odometer"`
	Documents  map[string][]string `json:"documents"`
	Inspection models.Inspection   `json:"inspection"`
	Note       string              `json:"note"`
}

// DeliveryInput is the evidence for discharging product at a stop.
type DeliveryInput struct {
	Odometer   Reading           `json:"odometer"`
	Photos     []string          `json:"photos"`
	Inspection models.Inspection `json:"inspection"`
	Note       string            `json:"note"`
}

// DepotArrivalInput is the evidence for returning to the depot.
type DepotArrivalInput struct {
	Odometer Reading  `json:"odometer"`
	Photos   []string `json:"photos"`
	Note     string   `json:"note"`
}

// NewStartTrip validates in and builds the checkpoint. floor is the highest odometer
// reading already on the job.
func NewStartTrip(in StartTripInput, floor float64, stamp Stamp) (*models.StartTrip, error) {
	var errs ValidationErrors
	odo := parseOdometer(in.Odometer, floor, &errs)
	if err := errs.orNil(); err != nil {
		return nil, err
	}
	return &models.StartTrip{
		Odometer:   odo,
		Photos:     cleanPhotos(in.Photos),
		Note:       strings.TrimSpace(in.Note),
		RecordedAt: stamp.At,
		RecordedBy: stamp.By,
	}, nil
}

// NewWarehouseConfirmation validates in and builds the checkpoint.
func NewWarehouseConfirmation(in WarehouseInput, stamp Stamp) (*models.WarehouseConfirmation, error) {
	var errs ValidationErrors
	authNo := strings.TrimSpace(in.AuthorizationNo)
	if authNo == "" {
		errs = append(errs, ValidationError{Field: "authorization_no", Message: "required"})
	}
	photos := cleanPhotos(in.Photos)
	if len(photos) == 0 {
		errs = append(errs, ValidationError{Field: "photos", Message: "at least one photo is required"})
	}
	if err := errs.orNil(); err != nil {
		return nil, err
	}
	return &models.WarehouseConfirmation{
		AuthorizationNo: authNo,
		Photos:          photos,
		Note:            strings.TrimSpace(in.Note),
		RecordedAt:      stamp.At,
		RecordedBy:      stamp.By,
	}, nil
}

// NewPickupConfirmation validates in and builds the checkpoint.
func NewPickupConfirmation(in PickupInput, floor float64, stamp Stamp) (*models.PickupConfirmation, error) {
	var errs ValidationErrors
	odo := parseOdometer(in.Odometer, floor, &errs)

	docs := make(map[string][]string, len(in.Documents))
	total := 0
	for category, refs := range in.Documents {
		category = strings.TrimSpace(category)
		photos := cleanPhotos(refs)
		if category == "" || len(photos) == 0 {
			continue
		}
		docs[category] = append(docs[category], photos...)
		total += len(photos)
	}
	if total == 0 {
		errs = append(errs, ValidationError{Field: "documents", Message: "at least one photo is required across document categories"})
	}
	inspection, note := checkInspection(in.Inspection, in.Note, &errs)
	if err := errs.orNil(); err != nil {
		return nil, err
	}
	return &models.PickupConfirmation{
		Odometer:   odo,
		Documents:  docs,
		Inspection: inspection,
		Note:       note,
		RecordedAt: stamp.At,
		RecordedBy: stamp.By,
	}, nil
}

// NewStopDelivery validates in and builds the delivery confirmation for one stop.
func NewStopDelivery(in DeliveryInput, floor float64, stamp Stamp) (*models.StopDelivery, error) {
	var errs ValidationErrors
	odo := parseOdometer(in.Odometer, floor, &errs)
	photos := cleanPhotos(in.Photos)
	if len(photos) == 0 {
		errs = append(errs, ValidationError{Field: "photos", Message: "at least one photo is required"})
	}
	inspection, note := checkInspection(in.Inspection, in.Note, &errs)
	if err := errs.orNil(); err != nil {
		return nil, err
	}
	return &models.StopDelivery{
		Odometer:   odo,
		Photos:     photos,
		Inspection: inspection,
		Note:       note,
		RecordedAt: stamp.At,
		RecordedBy: stamp.By,
	}, nil
}

// NewDepotArrival validates in and builds the checkpoint.
func NewDepotArrival(in DepotArrivalInput, floor float64, stamp Stamp) (*models.DepotArrival, error) {
	var errs ValidationErrors
	odo := parseOdometer(in.Odometer, floor, &errs)
	if err := errs.orNil(); err != nil {
		return nil, err
	}
	return &models.DepotArrival{
		Odometer:   odo,
		Photos:     cleanPhotos(in.Photos),
		Note:       strings.TrimSpace(in.Note),
		RecordedAt: stamp.At,
		RecordedBy: stamp.By,
	}, nil
}

// LastOdometer is the highest odometer reading recorded anywhere on the job, or 0.
func LastOdometer(job *models.Job) float64 {
	var last float64
	if job.StartTrip != nil {
		last = math.Max(last, job.StartTrip.Odometer)
	}
	if job.Pickup != nil {
		last = math.Max(last, job.Pickup.Odometer)
	}
	for _, s := range job.Stops {
		if s.Delivery != nil {
			last = math.Max(last, s.Delivery.Odometer)
		}
	}
	if job.DepotArrival != nil {
		last = math.Max(last, job.DepotArrival.Odometer)
	}
	return last
}

// odometerPattern admits plain decimals and comma thousands grouping ("125,500.5").
// Decimal commas, exponents and hex forms do not match.
var odometerPattern = regexp.MustCompile(`^-?(\d+|\d{1,3}(,\d{3})+)(\.\d+)?$`)

func parseOdometer(r Reading, floor float64, errs *ValidationErrors) float64 {
	raw := strings.TrimSpace(string(r))
	if raw == "" {
		*errs = append(*errs, ValidationError{Field: "odometer", Message: "required"})
		return 0
	}
	if !odometerPattern.MatchString(raw) {
		*errs = append(*errs, ValidationError{Field: "odometer", Message: fmt.Sprintf("must be numeric, got %q", raw)})
		return 0
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", ""), 64)
	if err != nil || math.IsInf(v, 0) {
		*errs = append(*errs, ValidationError{Field: "odometer", Message: fmt.Sprintf("must be numeric, got %q", raw)})
		return 0
	}
	if v < 0 {
		*errs = append(*errs, ValidationError{Field: "odometer", Message: "must not be negative"})
		return 0
	}
	if v < floor {
		*errs = append(*errs, ValidationError{
			Field:   "odometer",
			Message: fmt.Sprintf("must be at least %s (last recorded reading)", strconv.FormatFloat(floor, 'f', -1, 64)),
		})
		return 0
	}
	return v
}

func checkInspection(in models.Inspection, note string, errs *ValidationErrors) (models.Inspection, string) {
	note = strings.TrimSpace(note)
	switch in {
	case "":
		in = models.InspectionPassed
	case models.InspectionPassed, models.InspectionFailed:
	default:
		*errs = append(*errs, ValidationError{Field: "inspection", Message: fmt.Sprintf("must be passed or failed, got %q", in)})
		return in, note
	}
	if in == models.InspectionFailed && note == "" {
		*errs = append(*errs, ValidationError{Field: "note", Message: "required when inspection failed"})
	}
	return in, note
}

func cleanPhotos(refs []string) []string {
	out := make([]string, 0, len(refs))
	for _, ref := range refs {
		if ref = strings.TrimSpace(ref); ref != "" {
			out = append(out, ref)
		}
	}
	return out
}

package focus

import (
	"encoding/xml"
	"strconv"
	"strings"
	"time"

	"github.com/shopfabric/dispatch/pkg/carrier"
)

// The Focus "Run" server accepts a single GET whose ARGUMENTS parameter is
// a comma-joined, strictly ordered list of positional arguments. Each
// argument carries a one-letter type tag: -A for text, -N for numeric. A
// deliberately empty numeric slot carries no tag at all.

const (
	progCreate = "ship_create_anonymous"
	progCancel = "bitul_mishloah"
	progLabel  = "ship_print_ws"
	progStatus = "ship_status_xml"
	progSpots  = "ws_spotslist"
)

// createArgCount is the documented slot count of ship_create_anonymous.
const createArgCount = 41

func text(v string) string { return "-A" + sanitize(v) }
func num(v string) string  { return "-N" + v }

// emptyNum is an intentionally blank numeric slot.
const emptyNum = ""

// sanitize strips characters that would corrupt the positional encoding. A
// field containing the delimiter must never shift subsequent arguments.
func sanitize(v string) string {
	v = strings.ReplaceAll(v, ",", " ")
	v = strings.ReplaceAll(v, "&", " ")
	return strings.TrimSpace(v)
}

// buildCreateArgs encodes a shipment request into the documented argument
// order of ship_create_anonymous. The order is load-bearing: the carrier
// interprets every slot by position alone.
func buildCreateArgs(cfg *carrier.Config, req *carrier.Request) []string {
	shipmentType := cfg.Extra["shipmentType"]
	if shipmentType == "" {
		shipmentType = "50"
	}
	cargoType := cfg.Extra["cargoType"]
	if cargoType == "" {
		cargoType = "1"
	}

	args := make([]string, 0, createArgCount)

	// Account and shipment classification.
	args = append(args,
		text(cfg.CustomerNumber),
		text(shipmentType),
		text(cargoType),
		num("1"), // transport type: courier
	)

	// Recipient identity.
	args = append(args,
		text(req.Address.Name),
		text(""), // contact person
	)

	// Address breakdown.
	args = append(args,
		text(req.Address.City),
		text(req.Address.Street),
		text(req.Address.House),
		text(req.Address.Entrance),
		text(req.Address.Floor),
		text(req.Address.Apartment),
	)

	// Phones and email.
	args = append(args,
		text(req.Address.Phone),
		text(""), // secondary phone
		text(req.Address.Email),
	)

	// Carrier reference is the merchant's order number.
	args = append(args, text(req.Reference))

	// Parcels.
	args = append(args, num(strconv.Itoa(req.PackageCount())))
	if w := totalWeight(req.Packages); w > 0 {
		args = append(args, num(strconv.FormatFloat(w, 'f', 2, 64)))
	} else {
		args = append(args, emptyNum)
	}

	// Free-text notes.
	args = append(args,
		text(req.Notes),
		text(""), // second notes line
	)

	// Sender block: the merchant warehouse is configured carrier-side for
	// anonymous shipments, so these six slots stay blank.
	args = append(args,
		text(""), // sender name
		text(""), // sender city
		text(""), // sender street
		text(""), // sender house
		text(""), // sender phone
		text(""), // sender notes
	)

	// Scheduled pickup window (unused).
	args = append(args,
		text(""), // pickup date
		text(""), // pickup time
	)

	// Cash on delivery block.
	if req.COD && cfg.CODEnabled {
		args = append(args,
			num(strconv.FormatFloat(req.Total.Amount, 'f', 2, 64)),
			text(cfg.CODPaymentType),
			text(currencyOrDefault(req.Total.Currency)),
		)
	} else {
		args = append(args, emptyNum, text(""), text(""))
	}

	// Destination pickup point.
	pickupID := req.PickupPointID
	if pickupID == "" && cfg.AutoPickupPoint {
		pickupID = cfg.PickupPointID
	}
	if pickupID != "" {
		args = append(args, num(pickupID), num("1"))
	} else {
		args = append(args, emptyNum, num("0"))
	}

	// Return shipment flag, insurance, declared value, delivery window.
	args = append(args,
		num("0"),
		emptyNum,
		emptyNum,
		text(""),
	)

	// Postal data and platform order id.
	args = append(args,
		text(req.Address.Zip),
		text(req.Address.Country),
		text(req.OrderID),
	)

	// Response format flag, always XML.
	args = append(args, text("XML"))

	return args
}

func totalWeight(packages []carrier.Package) float64 {
	var w float64
	for _, p := range packages {
		w += p.Weight
	}
	return w
}

func currencyOrDefault(cur string) string {
	if cur == "" {
		return "ILS"
	}
	return cur
}

// ============================================================================
// Response decoding
// ============================================================================

// flexString tolerates the three serialization styles the carrier mixes
// across endpoints: a plain scalar, a single-element list, and CDATA-wrapped
// text. All three normalize to one scalar.
type flexString string

func (f *flexString) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	depth := 1
	var val string
	for depth > 0 {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
		case xml.CharData:
			if val == "" {
				val = strings.TrimSpace(string(t))
			}
		}
	}
	*f = flexString(val)
	return nil
}

func (f flexString) String() string { return string(f) }

func (f flexString) Int() int {
	n, _ := strconv.Atoi(string(f))
	return n
}

func (f flexString) Float() float64 {
	n, _ := strconv.ParseFloat(string(f), 64)
	return n
}

func (f flexString) Bool() bool {
	switch strings.ToLower(string(f)) {
	case "1", "true", "y", "yes":
		return true
	}
	return false
}

type createReply struct {
	ShipmentNumber flexString `xml:"ship_create_num"`
	ErrorCode      flexString `xml:"error_code"`
	ErrorMessage   flexString `xml:"error_msg"`
	DistLine       flexString `xml:"dist_line"`
	DistArea       flexString `xml:"dist_area"`
}

// duplicateReferenceCodes are the carrier error codes meaning the reference
// was already used. Retrying cannot change that outcome.
var duplicateReferenceCodes = map[string]bool{
	"2":   true,
	"301": true,
}

func duplicateReference(code, message string) bool {
	return duplicateReferenceCodes[code] ||
		strings.Contains(strings.ToLower(message), "duplicate")
}

// decodeCreateXML maps the carrier's XML create response into a Response. A
// top-level error indicator or a missing/zero shipment number is a failure;
// its retryability depends on the carrier's error code.
func decodeCreateXML(body []byte) (*carrier.Response, error) {
	var reply createReply
	if err := xml.Unmarshal(body, &reply); err != nil {
		return nil, carrier.NewCarrierError(carrierName, "BAD_RESPONSE", "unparseable XML response").WithCause(err).WithRetryable(true)
	}

	shipNum := reply.ShipmentNumber.String()
	if reply.ErrorCode.String() != "" || reply.ErrorMessage.String() != "" || shipNum == "" || shipNum == "0" {
		code := reply.ErrorCode.String()
		msg := reply.ErrorMessage.String()
		if msg == "" {
			msg = "carrier did not return a shipment number"
		}
		return carrier.Failure(code, msg, !duplicateReference(code, msg)), nil
	}

	resp := &carrier.Response{
		Success:        true,
		ShipmentID:     shipNum,
		TrackingNumber: shipNum,
		Payload:        map[string]string{},
	}
	if v := reply.DistLine.String(); v != "" {
		resp.Payload["distLine"] = v
	}
	if v := reply.DistArea.String(); v != "" {
		resp.Payload["distArea"] = v
	}
	return resp, nil
}

// decodeCreateTXT parses the carrier's fallback plain-text line:
// shipmentNumber,distributionLine,distributionArea,error.
func decodeCreateTXT(body []byte) (*carrier.Response, error) {
	line := strings.TrimSpace(string(body))
	parts := strings.SplitN(line, ",", 4)
	for len(parts) < 4 {
		parts = append(parts, "")
	}
	shipNum, distLine, distArea, errText := parts[0], parts[1], parts[2], strings.TrimSpace(parts[3])

	if errText != "" || shipNum == "" || shipNum == "0" {
		msg := errText
		if msg == "" {
			msg = "carrier did not return a shipment number"
		}
		return carrier.Failure("", msg, !duplicateReference("", msg)), nil
	}

	resp := &carrier.Response{
		Success:        true,
		ShipmentID:     shipNum,
		TrackingNumber: shipNum,
		Payload:        map[string]string{},
	}
	if distLine != "" {
		resp.Payload["distLine"] = distLine
	}
	if distArea != "" {
		resp.Payload["distArea"] = distArea
	}
	return resp, nil
}

type statusReply struct {
	ShipmentNumber flexString    `xml:"ship_num"`
	StatusCode     flexString    `xml:"status_code"`
	Delivered      flexString    `xml:"delivered"`
	LastUpdate     flexString    `xml:"last_update"`
	DriverName     flexString    `xml:"driver_name"`
	DriverPhone    flexString    `xml:"driver_phone"`
	Events         []statusEvent `xml:"events>event"`
}

type statusEvent struct {
	Time        flexString `xml:"time"`
	Code        flexString `xml:"code"`
	Description flexString `xml:"description"`
}

const statusTimeLayout = "2006-01-02 15:04:05"

// mapStatusCode maps the carrier's numeric status onto the internal enum.
func mapStatusCode(code int, delivered bool) carrier.Status {
	if delivered {
		return carrier.StatusDelivered
	}
	switch code {
	case 0, 1:
		return carrier.StatusPending
	case 2:
		return carrier.StatusSent
	case 3, 4:
		return carrier.StatusInTransit
	case 5:
		return carrier.StatusDelivered
	case 6:
		return carrier.StatusCancelled
	case 7:
		return carrier.StatusReturned
	case 8:
		return carrier.StatusFailed
	default:
		return carrier.StatusPending
	}
}

func decodeStatusXML(body []byte) (*carrier.TrackingStatus, error) {
	var reply statusReply
	if err := xml.Unmarshal(body, &reply); err != nil {
		return nil, carrier.NewCarrierError(carrierName, "BAD_RESPONSE", "unparseable tracking response").WithCause(err).WithRetryable(true)
	}

	status := mapStatusCode(reply.StatusCode.Int(), reply.Delivered.Bool())

	ts := &carrier.TrackingStatus{
		Status:         status,
		TrackingNumber: reply.ShipmentNumber.String(),
		CanCancel:      status == carrier.StatusSent || status == carrier.StatusPending,
	}
	if t, err := time.Parse(statusTimeLayout, reply.LastUpdate.String()); err == nil {
		ts.UpdatedAt = t
	}
	ts.DriverName = reply.DriverName.String()
	ts.DriverPhone = reply.DriverPhone.String()

	for _, ev := range reply.Events {
		event := carrier.TrackingEvent{
			Code:        ev.Code.String(),
			Description: ev.Description.String(),
		}
		if t, err := time.Parse(statusTimeLayout, ev.Time.String()); err == nil {
			event.Timestamp = t
		}
		ts.Events = append(ts.Events, event)
	}
	return ts, nil
}

type spotsReply struct {
	Spots []spot `xml:"spot"`
}

type spot struct {
	ID        flexString `xml:"spot_id"`
	Name      flexString `xml:"name"`
	Address   flexString `xml:"address"`
	City      flexString `xml:"city"`
	Hours     flexString `xml:"hours"`
	Type      flexString `xml:"spot_type"`
	Latitude  flexString `xml:"lat"`
	Longitude flexString `xml:"lng"`
}

func decodeSpotsXML(body []byte) ([]carrier.PickupPoint, error) {
	var reply spotsReply
	if err := xml.Unmarshal(body, &reply); err != nil {
		return nil, carrier.NewCarrierError(carrierName, "BAD_RESPONSE", "unparseable spots response").WithCause(err).WithRetryable(true)
	}

	points := make([]carrier.PickupPoint, 0, len(reply.Spots))
	for _, s := range reply.Spots {
		points = append(points, carrier.PickupPoint{
			ID:        s.ID.String(),
			Name:      s.Name.String(),
			Address:   s.Address.String(),
			City:      s.City.String(),
			Hours:     s.Hours.String(),
			Type:      mapSpotType(s.Type.String()),
			Latitude:  s.Latitude.Float(),
			Longitude: s.Longitude.Float(),
		})
	}
	return points, nil
}

// mapSpotType defaults to locker unless the carrier's type field explicitly
// indicates a staffed store.
func mapSpotType(t string) carrier.PickupPointType {
	switch strings.ToLower(t) {
	case "2", "store", "shop":
		return carrier.PickupStore
	}
	return carrier.PickupLocker
}

type labelReply struct {
	URL flexString `xml:"label_url"`
}

func decodeLabelXML(body []byte) (*carrier.LabelResponse, error) {
	var reply labelReply
	if err := xml.Unmarshal(body, &reply); err != nil {
		return nil, carrier.NewCarrierError(carrierName, "BAD_RESPONSE", "unparseable label response").WithCause(err).WithRetryable(true)
	}
	if reply.URL.String() == "" {
		return nil, carrier.ErrLabelNotAvailable
	}
	return &carrier.LabelResponse{Format: "pdf", URL: reply.URL.String()}, nil
}

// cancellationSucceeded detects a successful cancellation by substring
// match on the response body. The carrier has no documented structured
// cancellation schema, so this stays isolated here until one exists.
// TODO: switch to a structured status code check once the carrier
// documents the bitul_mishloah response schema.
func cancellationSucceeded(body string) bool {
	return strings.Contains(body, "בוטל")
}

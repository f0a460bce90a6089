package focus

import (
	"strings"
	"testing"
	"time"

	"github.com/shopfabric/dispatch/pkg/carrier"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *carrier.Config {
	return &carrier.Config{
		Host:           "https://focus.example.com",
		CustomerNumber: "7788",
		Extra:          map[string]string{"shipmentType": "50", "cargoType": "1"},
	}
}

func testRequest() *carrier.Request {
	req := carrier.NewRequest("ord-1", "10045")
	req.Address = carrier.Address{
		Name:   "Dana Levi",
		Phone:  "0501234567",
		Email:  "dana@example.com",
		City:   "Tel Aviv",
		Street: "Herzl",
		House:  "12",
	}
	return req
}

func TestBuildCreateArgs_SlotCount(t *testing.T) {
	args := buildCreateArgs(testConfig(), testRequest())
	assert.Len(t, args, createArgCount)
}

func TestBuildCreateArgs_Positions(t *testing.T) {
	args := buildCreateArgs(testConfig(), testRequest())

	assert.Equal(t, "-A7788", args[0], "customer number")
	assert.Equal(t, "-A50", args[1], "shipment type")
	assert.Equal(t, "-A1", args[2], "cargo type")
	assert.Equal(t, "-N1", args[3], "transport type")
	assert.Equal(t, "-ADana Levi", args[4], "recipient name")
	assert.Equal(t, "-ATel Aviv", args[6], "city")
	assert.Equal(t, "-AHerzl", args[7], "street")
	assert.Equal(t, "-A12", args[8], "house")
	assert.Equal(t, "-A0501234567", args[12], "phone")
	assert.Equal(t, "-Adana@example.com", args[14], "email")
	assert.Equal(t, "-A10045", args[15], "reference is order number")
	assert.Equal(t, "-N1", args[16], "package count")
	assert.Equal(t, "", args[17], "unknown weight is a bare empty numeric")
	assert.Equal(t, "-Aord-1", args[39], "platform order id")
	assert.Equal(t, "-AXML", args[40], "response format flag")
}

func TestBuildCreateArgs_DefaultsShipmentType(t *testing.T) {
	cfg := testConfig()
	cfg.Extra = nil

	args := buildCreateArgs(cfg, testRequest())
	assert.Equal(t, "-A50", args[1])
	assert.Equal(t, "-A1", args[2])
}

func TestBuildCreateArgs_SanitizesDelimiter(t *testing.T) {
	req := testRequest()
	req.Address.Street = "Herzl, corner of Allenby & Ben Yehuda"

	args := buildCreateArgs(testConfig(), req)

	// The delimiter must never leak into a slot and shift positions.
	for i, arg := range args {
		assert.NotContains(t, arg, ",", "slot %d", i)
		assert.NotContains(t, arg, "&", "slot %d", i)
	}
	assert.Len(t, args, createArgCount)
	assert.Equal(t, "-AHerzl  corner of Allenby   Ben Yehuda", args[7])
}

func TestBuildCreateArgs_Weight(t *testing.T) {
	req := testRequest()
	req.Packages = []carrier.Package{{Quantity: 2, Weight: 1.5}, {Quantity: 1, Weight: 2}}

	args := buildCreateArgs(testConfig(), req)
	assert.Equal(t, "-N3", args[16])
	assert.Equal(t, "-N3.50", args[17])
}

func TestBuildCreateArgs_COD(t *testing.T) {
	cfg := testConfig()
	cfg.CODEnabled = true
	cfg.CODPaymentType = "cash"
	req := testRequest()
	req.COD = true
	req.Total = carrier.Money{Amount: 249.9, Currency: ""}

	args := buildCreateArgs(cfg, req)
	assert.Equal(t, "-N249.90", args[28], "COD amount")
	assert.Equal(t, "-Acash", args[29], "COD payment type")
	assert.Equal(t, "-AILS", args[30], "currency defaults to ILS")
}

func TestBuildCreateArgs_CODDisabledInConfig(t *testing.T) {
	req := testRequest()
	req.COD = true
	req.Total = carrier.Money{Amount: 100}

	// COD requested on the order but not enabled on the integration: the
	// block stays blank.
	args := buildCreateArgs(testConfig(), req)
	assert.Equal(t, "", args[28])
	assert.Equal(t, "-A", args[29])
	assert.Equal(t, "-A", args[30])
}

func TestBuildCreateArgs_PickupPoint(t *testing.T) {
	req := testRequest()
	req.PickupPointID = "345"

	args := buildCreateArgs(testConfig(), req)
	assert.Equal(t, "-N345", args[31])
	assert.Equal(t, "-N1", args[32])
}

func TestBuildCreateArgs_AutoPickupPoint(t *testing.T) {
	cfg := testConfig()
	cfg.AutoPickupPoint = true
	cfg.PickupPointID = "901"

	args := buildCreateArgs(cfg, testRequest())
	assert.Equal(t, "-N901", args[31], "config fallback when order has no pickup point")
	assert.Equal(t, "-N1", args[32])
}

func TestBuildCreateArgs_NoPickupPoint(t *testing.T) {
	args := buildCreateArgs(testConfig(), testRequest())
	assert.Equal(t, "", args[31])
	assert.Equal(t, "-N0", args[32])
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "a b", sanitize("a,b"))
	assert.Equal(t, "a b", sanitize("a&b"))
	assert.Equal(t, "trimmed", sanitize("  trimmed ,"))
}

// ============================================================================
// Response decoding
// ============================================================================

func TestDecodeCreateXML_Success(t *testing.T) {
	body := []byte(`<root><ship_create_num>123456</ship_create_num><dist_line>LINE1</dist_line><dist_area>AREA2</dist_area></root>`)

	resp, err := decodeCreateXML(body)
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, "123456", resp.ShipmentID)
	assert.Equal(t, "123456", resp.TrackingNumber)
	assert.Equal(t, "LINE1", resp.Payload["distLine"])
	assert.Equal(t, "AREA2", resp.Payload["distArea"])
}

func TestDecodeCreateXML_NestedList(t *testing.T) {
	// The carrier sometimes wraps the number in a single-element list.
	body := []byte(`<root><ship_create_num><item>123456</item></ship_create_num></root>`)

	resp, err := decodeCreateXML(body)
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, "123456", resp.ShipmentID)
}

func TestDecodeCreateXML_CDATA(t *testing.T) {
	body := []byte(`<root><ship_create_num><![CDATA[123456]]></ship_create_num></root>`)

	resp, err := decodeCreateXML(body)
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, "123456", resp.ShipmentID)
}

func TestDecodeCreateXML_CarrierError(t *testing.T) {
	body := []byte(`<root><ship_create_num>0</ship_create_num><error_code>17</error_code><error_msg>invalid city</error_msg></root>`)

	resp, err := decodeCreateXML(body)
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Equal(t, "17", resp.ErrorCode)
	assert.Equal(t, "invalid city", resp.Error)
	assert.True(t, resp.Retryable)
}

func TestDecodeCreateXML_DuplicateReference(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"code 2", `<root><error_code>2</error_code><error_msg>reference exists</error_msg></root>`},
		{"code 301", `<root><error_code>301</error_code><error_msg>reference exists</error_msg></root>`},
		{"message match", `<root><error_code>99</error_code><error_msg>Duplicate reference number</error_msg></root>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := decodeCreateXML([]byte(tt.body))
			require.NoError(t, err)
			assert.False(t, resp.Success)
			assert.False(t, resp.Retryable, "a duplicate reference can never succeed on retry")
		})
	}
}

func TestDecodeCreateXML_MissingShipmentNumber(t *testing.T) {
	resp, err := decodeCreateXML([]byte(`<root></root>`))
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.Error)
}

func TestDecodeCreateXML_Unparseable(t *testing.T) {
	_, err := decodeCreateXML([]byte(`<<<not xml`))
	require.Error(t, err)
	assert.True(t, carrier.IsRetryable(err))
}

func TestDecodeCreateTXT_Success(t *testing.T) {
	resp, err := decodeCreateTXT([]byte("123456,LINE1,AREA2,\n"))
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, "123456", resp.ShipmentID)
	assert.Equal(t, "LINE1", resp.Payload["distLine"])
	assert.Equal(t, "AREA2", resp.Payload["distArea"])
}

func TestDecodeCreateTXT_Error(t *testing.T) {
	resp, err := decodeCreateTXT([]byte("0,,,Duplicate reference"))
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Equal(t, "Duplicate reference", resp.Error)
	assert.False(t, resp.Retryable)
}

func TestDecodeCreateTXT_ShortLine(t *testing.T) {
	resp, err := decodeCreateTXT([]byte("123456"))
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, "123456", resp.ShipmentID)
}

func TestDecodeCreateTXT_Empty(t *testing.T) {
	resp, err := decodeCreateTXT([]byte(""))
	require.NoError(t, err)
	assert.False(t, resp.Success)
}

func TestMapStatusCode(t *testing.T) {
	tests := []struct {
		code      int
		delivered bool
		want      carrier.Status
	}{
		{0, false, carrier.StatusPending},
		{1, false, carrier.StatusPending},
		{2, false, carrier.StatusSent},
		{3, false, carrier.StatusInTransit},
		{4, false, carrier.StatusInTransit},
		{5, false, carrier.StatusDelivered},
		{6, false, carrier.StatusCancelled},
		{7, false, carrier.StatusReturned},
		{8, false, carrier.StatusFailed},
		{99, false, carrier.StatusPending},
		{2, true, carrier.StatusDelivered}, // delivered flag wins
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, mapStatusCode(tt.code, tt.delivered),
			"code=%d delivered=%v", tt.code, tt.delivered)
	}
}

func TestDecodeStatusXML(t *testing.T) {
	body := []byte(`<root>
		<ship_num>123456</ship_num>
		<status_code>3</status_code>
		<delivered>0</delivered>
		<last_update>2026-02-10 14:30:00</last_update>
		<driver_name>Moshe</driver_name>
		<driver_phone>0529876543</driver_phone>
		<events>
			<event><time>2026-02-10 09:00:00</time><code>2</code><description>Picked up</description></event>
			<event><time>2026-02-10 14:30:00</time><code>3</code><description>In transit</description></event>
		</events>
	</root>`)

	ts, err := decodeStatusXML(body)
	require.NoError(t, err)
	assert.Equal(t, carrier.StatusInTransit, ts.Status)
	assert.Equal(t, "123456", ts.TrackingNumber)
	assert.Equal(t, "Moshe", ts.DriverName)
	assert.False(t, ts.CanCancel, "in transit is past the cancellation window")
	assert.Equal(t, time.Date(2026, 2, 10, 14, 30, 0, 0, time.UTC), ts.UpdatedAt)
	require.Len(t, ts.Events, 2)
	assert.Equal(t, "Picked up", ts.Events[0].Description)
}

func TestDecodeStatusXML_CanCancel(t *testing.T) {
	body := []byte(`<root><ship_num>1</ship_num><status_code>2</status_code></root>`)

	ts, err := decodeStatusXML(body)
	require.NoError(t, err)
	assert.Equal(t, carrier.StatusSent, ts.Status)
	assert.True(t, ts.CanCancel)
}

func TestDecodeSpotsXML(t *testing.T) {
	body := []byte(`<root>
		<spot><spot_id>101</spot_id><name>Center Locker</name><address>Herzl 12</address><city>Tel Aviv</city><spot_type>1</spot_type><lat>32.07</lat><lng>34.78</lng></spot>
		<spot><spot_id>102</spot_id><name>Main St Store</name><address>Main 3</address><city>Haifa</city><spot_type>2</spot_type></spot>
	</root>`)

	points, err := decodeSpotsXML(body)
	require.NoError(t, err)
	require.Len(t, points, 2)

	assert.Equal(t, "101", points[0].ID)
	assert.Equal(t, carrier.PickupLocker, points[0].Type)
	assert.InDelta(t, 32.07, points[0].Latitude, 0.001)

	assert.Equal(t, carrier.PickupStore, points[1].Type)
}

func TestMapSpotType(t *testing.T) {
	assert.Equal(t, carrier.PickupStore, mapSpotType("2"))
	assert.Equal(t, carrier.PickupStore, mapSpotType("store"))
	assert.Equal(t, carrier.PickupStore, mapSpotType("Shop"))
	assert.Equal(t, carrier.PickupLocker, mapSpotType("1"))
	assert.Equal(t, carrier.PickupLocker, mapSpotType(""))
}

func TestDecodeLabelXML(t *testing.T) {
	resp, err := decodeLabelXML([]byte(`<root><label_url>https://focus.example.com/labels/1.pdf</label_url></root>`))
	require.NoError(t, err)
	assert.Equal(t, "https://focus.example.com/labels/1.pdf", resp.URL)
	assert.Equal(t, "pdf", resp.Format)
}

func TestDecodeLabelXML_NotAvailable(t *testing.T) {
	_, err := decodeLabelXML([]byte(`<root><label_url></label_url></root>`))
	assert.ErrorIs(t, err, carrier.ErrLabelNotAvailable)
}

func TestCancellationSucceeded(t *testing.T) {
	assert.True(t, cancellationSucceeded("המשלוח בוטל בהצלחה"))
	assert.False(t, cancellationSucceeded("shipment not found"))
	assert.False(t, cancellationSucceeded(""))
}

func TestFlexString_Conversions(t *testing.T) {
	assert.Equal(t, 5, flexString("5").Int())
	assert.Equal(t, 0, flexString("abc").Int())
	assert.InDelta(t, 1.5, flexString("1.5").Float(), 0.001)
	assert.True(t, flexString("1").Bool())
	assert.True(t, flexString("Yes").Bool())
	assert.False(t, flexString("0").Bool())
	assert.False(t, flexString("").Bool())
}

func TestSanitize_PreservesHebrew(t *testing.T) {
	assert.Equal(t, "דנה לוי", sanitize("דנה לוי"))
	assert.True(t, strings.HasPrefix(text("דנה"), "-A"))
}

package model

// BlockFields names the positions of the tuple returned by a block stats call.
var BlockFields = [5]string{
	"read_requests_issued",
	"read_bytes",
	"write_requests_issued",
	"write_bytes",
	"errors_number",
}

// InterfaceFields names the positions of the tuple returned by an interface stats call.
var InterfaceFields = [8]string{
	"read_bytes",
	"read_packets",
	"read_errors",
	"read_drops",
	"write_bytes",
	"write_packets",
	"write_errors",
	"write_drops",
}

// BlockStats is rd_req, rd_bytes, wr_req, wr_bytes, errs.
type BlockStats [len(BlockFields)]int64

// InterfaceStats is rx bytes/packets/errs/drop followed by tx bytes/packets/errs/drop.
type InterfaceStats [len(InterfaceFields)]int64

// Field is one named counter of a flat stat category.
type Field struct {
	Name  string
	Value float64
}

// DeviceSample holds the counters read for one attached device.
type DeviceSample struct {
	Device string
	Fields []Field
}

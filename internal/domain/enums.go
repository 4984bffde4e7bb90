// Package domain defines the core persistence models for the application.
// This file declares the fixed enumerations (service types, request statuses,
// roles) together with their Indonesian display labels used in notifications
// and CSV exports.
package domain

// ServiceType identifies one of the eight administrative document kinds the
// village office issues.
type ServiceType string

// The fixed service-type enumeration.
const (
	ServiceSuratPengantarKTP      ServiceType = "surat_pengantar_ktp"
	ServiceKeteranganDomisili     ServiceType = "surat_keterangan_domisili"
	ServiceKeteranganUsaha        ServiceType = "surat_keterangan_usaha"
	ServiceKeteranganTidakMampu   ServiceType = "surat_keterangan_tidak_mampu"
	ServiceKeteranganBelumMenikah ServiceType = "surat_keterangan_belum_menikah"
	ServiceSuratPengantarNikah    ServiceType = "surat_pengantar_nikah"
	ServiceKeteranganKematian     ServiceType = "surat_keterangan_kematian"
	ServiceKeteranganKelahiran    ServiceType = "surat_keterangan_kelahiran"
)

// AllServiceTypes lists every service type in a stable order. Aggregations
// zero-fill buckets from this slice.
var AllServiceTypes = []ServiceType{
	ServiceSuratPengantarKTP,
	ServiceKeteranganDomisili,
	ServiceKeteranganUsaha,
	ServiceKeteranganTidakMampu,
	ServiceKeteranganBelumMenikah,
	ServiceSuratPengantarNikah,
	ServiceKeteranganKematian,
	ServiceKeteranganKelahiran,
}

var serviceTypeLabels = map[ServiceType]string{
	ServiceSuratPengantarKTP:      "Surat Pengantar KTP",
	ServiceKeteranganDomisili:     "Surat Keterangan Domisili",
	ServiceKeteranganUsaha:        "Surat Keterangan Usaha",
	ServiceKeteranganTidakMampu:   "Surat Keterangan Tidak Mampu",
	ServiceKeteranganBelumMenikah: "Surat Keterangan Belum Menikah",
	ServiceSuratPengantarNikah:    "Surat Pengantar Nikah",
	ServiceKeteranganKematian:     "Surat Keterangan Kematian",
	ServiceKeteranganKelahiran:    "Surat Keterangan Kelahiran",
}

// Valid reports whether t is one of the recognized service types.
func (t ServiceType) Valid() bool {
	_, ok := serviceTypeLabels[t]
	return ok
}

// Label returns the human-readable Indonesian name for the service type,
// falling back to the raw value for unknown inputs.
func (t ServiceType) Label() string {
	if l, ok := serviceTypeLabels[t]; ok {
		return l
	}
	return string(t)
}

// RequestStatus is the lifecycle state of a service request.
//
// Transitions are deliberately unrestricted: any status may follow any other,
// including from a terminal state (an operator may reopen a cancelled
// request). Transitions out of completed/cancelled are logged for review but
// not rejected.
type RequestStatus string

// The fixed status enumeration.
const (
	StatusPending   RequestStatus = "pending"
	StatusOnProcess RequestStatus = "on_process"
	StatusCompleted RequestStatus = "completed"
	StatusCancelled RequestStatus = "cancelled"
)

// AllStatuses lists every status in a stable order.
var AllStatuses = []RequestStatus{StatusPending, StatusOnProcess, StatusCompleted, StatusCancelled}

var statusLabels = map[RequestStatus]string{
	StatusPending:   "Menunggu",
	StatusOnProcess: "Diproses",
	StatusCompleted: "Selesai",
	StatusCancelled: "Dibatalkan",
}

// Valid reports whether s is one of the recognized statuses.
func (s RequestStatus) Valid() bool {
	_, ok := statusLabels[s]
	return ok
}

// Label returns the Indonesian display name used in CSV exports.
func (s RequestStatus) Label() string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

// Terminal reports whether s is an end state (completed or cancelled).
func (s RequestStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Role is the authorization role attached to a Profile.
type Role string

// Recognized roles. RoleOperator and RoleAdmin are equivalent for dashboard
// authorization.
const (
	RoleUser     Role = "user"
	RoleOperator Role = "operator"
	RoleAdmin    Role = "admin"
)

// CanOperate reports whether the role grants operator capabilities.
func (r Role) CanOperate() bool {
	return r == RoleOperator || r == RoleAdmin
}

// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

package types

import "net/netip"

// NamedAddress represents a URL host and port in canonical form, together with one
// of the endpoints it resolves to and the quality (verification status,
// [Quality] type) of that endpoint. A NamedAddress without a valid endpoint
// announces a host that is yet to be resolved.
type NamedAddress interface {
	QualifiedAddress
	Name() string          // canonical host and port
	NA() NamedAddressValue // returns a copy
}

// QualifiedAddress gives access to qualified endpoint information and also
// allows updating the quality information aspect of an endpoint.
type QualifiedAddress interface {
	Endpoint() netip.AddrPort                             // returns endpoint
	Addr() string                                         // returns the endpoint's IP address in text form, or ""
	Qual() Quality                                        // returns Quality
	Err() error                                           // if Quality is Invalid, optional additional error information.
	QA() QualifiedAddressValue                            // returns (a copy of) the qualified endpoint information
	WithNewQuality(q Quality, err error) QualifiedAddress // returns a new and updated qualified endpoint
}

// NamedAddressValue implements a concrete representation of a [NamedAddress].
type NamedAddressValue struct {
	Host                  string `json:"host"` // canonical URL host and port
	QualifiedAddressValue        // a single associated (resolved) endpoint
}

var _ NamedAddress = (*NamedAddressValue)(nil)

// Name returns the canonical host and port.
func (na *NamedAddressValue) Name() string {
	return na.Host
}

// NA returns (a copy of) the named endpoint information.
func (na *NamedAddressValue) NA() NamedAddressValue {
	return *na
}

// WithNewQuality returns newly qualified (named) endpoint information.
func (na *NamedAddressValue) WithNewQuality(q Quality, err error) QualifiedAddress {
	qa := na.QA()
	qa.Quality = q
	qa.err = err
	return &NamedAddressValue{
		Host:                  na.Host,
		QualifiedAddressValue: qa,
	}
}

// QualifiedAddressValue is a network endpoint with an associated quality, such
// as unverified, verifying, verified, and invalid.
type QualifiedAddressValue struct {
	Address netip.AddrPort `json:"endpoint"` // a single IP (v4/v6) address and port
	Quality Quality        `json:"quality"`  // quality (validation) state
	err     error          // optional error details for invalid endpoints
}

var _ QualifiedAddress = (*QualifiedAddressValue)(nil)

// Endpoint returns the endpoint.
func (qa *QualifiedAddressValue) Endpoint() netip.AddrPort { return qa.Address }

// Addr returns the IP address of the endpoint in text form, without any
// port. For an invalid endpoint Addr returns "".
func (qa *QualifiedAddressValue) Addr() string {
	if !qa.Address.IsValid() {
		return ""
	}
	return qa.Address.Addr().String()
}

// Qual return the quality.
func (qa *QualifiedAddressValue) Qual() Quality { return qa.Quality }

// Err returns an optional error that occurred while trying to validate an
// endpoint.
func (qa *QualifiedAddressValue) Err() error { return qa.err }

// QA returns (a copy of) the qualified endpoint information.
func (qa *QualifiedAddressValue) QA() QualifiedAddressValue {
	return *qa
}

// WithNewQuality returns newly qualified endpoint information.
func (qa *QualifiedAddressValue) WithNewQuality(q Quality, err error) QualifiedAddress {
	return &QualifiedAddressValue{
		Address: qa.Address,
		Quality: q,
		err:     err,
	}
}

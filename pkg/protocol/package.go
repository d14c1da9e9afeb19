package protocol

import "github.com/marmos91/netsspi/pkg/wire"

// PackageInfo describes one security package.
type PackageInfo struct {
	Capabilities uint32
	Version      uint16
	RPCID        uint16
	MaxToken     uint32
	Name         wire.String
	Comment      wire.String
}

// packageInfoMinSize is the encoded size of a PackageInfo with empty strings.
const packageInfoMinSize = 4 + 2 + 2 + 4 + 2 + 2

func writePackageInfo(w *wire.Writer, p *PackageInfo) {
	w.WriteUint32(p.Capabilities)
	w.WriteUint16(p.Version)
	w.WriteUint16(p.RPCID)
	w.WriteUint32(p.MaxToken)
	w.WriteString(p.Name)
	w.WriteString(p.Comment)
}

func readPackageInfo(r *wire.Reader) PackageInfo {
	var p PackageInfo
	p.Capabilities = r.ReadUint32()
	p.Version = r.ReadUint16()
	p.RPCID = r.ReadUint16()
	p.MaxToken = r.ReadUint32()
	p.Name = r.ReadString()
	p.Comment = r.ReadString()
	return p
}

// EnumerateSecurityPackagesRequest has no fields.
type EnumerateSecurityPackagesRequest struct{}

func (*EnumerateSecurityPackagesRequest) FunctionID() FunctionID {
	return FuncEnumerateSecurityPackages
}
func (*EnumerateSecurityPackagesRequest) Encode(*wire.Writer) {}
func (*EnumerateSecurityPackagesRequest) Decode(*wire.Reader) {}

// EnumerateSecurityPackagesResponse lists the packages the provider offers.
type EnumerateSecurityPackagesResponse struct {
	Packages []PackageInfo
}

func (*EnumerateSecurityPackagesResponse) FunctionID() FunctionID {
	return FuncEnumerateSecurityPackages
}

func (m *EnumerateSecurityPackagesResponse) Encode(w *wire.Writer) {
	w.WriteUint32(uint32(len(m.Packages)))
	for i := range m.Packages {
		writePackageInfo(w, &m.Packages[i])
	}
}

func (m *EnumerateSecurityPackagesResponse) Decode(r *wire.Reader) {
	count := r.ReadUint32()
	if uint64(count)*packageInfoMinSize > uint64(r.Remaining()) {
		r.Fail(errCountExceedsInput("package count", count, r.Remaining()))
		return
	}
	m.Packages = make([]PackageInfo, count)
	for i := range m.Packages {
		m.Packages[i] = readPackageInfo(r)
	}
}

// QuerySecurityPackageInfoRequest names one package.
type QuerySecurityPackageInfoRequest struct {
	PackageName wire.String
}

func (*QuerySecurityPackageInfoRequest) FunctionID() FunctionID {
	return FuncQuerySecurityPackageInfo
}

func (m *QuerySecurityPackageInfoRequest) Encode(w *wire.Writer) {
	w.WriteString(m.PackageName)
}

func (m *QuerySecurityPackageInfoRequest) Decode(r *wire.Reader) {
	m.PackageName = r.ReadString()
}

// QuerySecurityPackageInfoResponse carries the package description.
type QuerySecurityPackageInfoResponse struct {
	PackageInfo
}

func (*QuerySecurityPackageInfoResponse) FunctionID() FunctionID {
	return FuncQuerySecurityPackageInfo
}

func (m *QuerySecurityPackageInfoResponse) Encode(w *wire.Writer) {
	writePackageInfo(w, &m.PackageInfo)
}

func (m *QuerySecurityPackageInfoResponse) Decode(r *wire.Reader) {
	m.PackageInfo = readPackageInfo(r)
}

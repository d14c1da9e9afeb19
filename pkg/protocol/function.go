package protocol

import "fmt"

// FunctionID selects which remote operation a framed message invokes.
type FunctionID uint8

const (
	FuncEnumerateSecurityPackages  FunctionID = 1
	FuncQueryCredentialsAttributes FunctionID = 2
	FuncAcquireCredentialsHandle   FunctionID = 3
	FuncFreeCredentialsHandle      FunctionID = 4
	FuncReserved2                  FunctionID = 5
	FuncInitializeSecurityContext  FunctionID = 6
	FuncAcceptSecurityContext      FunctionID = 7
	FuncCompleteAuthToken          FunctionID = 8
	FuncDeleteSecurityContext      FunctionID = 9
	FuncApplyControlToken          FunctionID = 10
	FuncQueryContextAttributes     FunctionID = 11
	FuncImpersonateSecurityContext FunctionID = 12
	FuncRevertSecurityContext      FunctionID = 13
	FuncMakeSignature              FunctionID = 14
	FuncVerifySignature            FunctionID = 15
	FuncFreeContextBuffer          FunctionID = 16
	FuncQuerySecurityPackageInfo   FunctionID = 17
	FuncReserved3                  FunctionID = 18
	FuncReserved4                  FunctionID = 19
	FuncExportSecurityContext      FunctionID = 20
	FuncImportSecurityContext      FunctionID = 21
	FuncAddCredentials             FunctionID = 22
	FuncReserved8                  FunctionID = 23
	FuncQuerySecurityContextToken  FunctionID = 24
	FuncEncryptMessage             FunctionID = 25
	FuncDecryptMessage             FunctionID = 26
	FuncSetContextAttributes       FunctionID = 27
)

// MaxFunctionID is the highest assigned function identifier.
const MaxFunctionID = FuncSetContextAttributes

var functionNames = map[FunctionID]string{
	FuncEnumerateSecurityPackages:  "EnumerateSecurityPackages",
	FuncQueryCredentialsAttributes: "QueryCredentialsAttributes",
	FuncAcquireCredentialsHandle:   "AcquireCredentialsHandle",
	FuncFreeCredentialsHandle:      "FreeCredentialsHandle",
	FuncReserved2:                  "Reserved2",
	FuncInitializeSecurityContext:  "InitializeSecurityContext",
	FuncAcceptSecurityContext:      "AcceptSecurityContext",
	FuncCompleteAuthToken:          "CompleteAuthToken",
	FuncDeleteSecurityContext:      "DeleteSecurityContext",
	FuncApplyControlToken:          "ApplyControlToken",
	FuncQueryContextAttributes:     "QueryContextAttributes",
	FuncImpersonateSecurityContext: "ImpersonateSecurityContext",
	FuncRevertSecurityContext:      "RevertSecurityContext",
	FuncMakeSignature:              "MakeSignature",
	FuncVerifySignature:            "VerifySignature",
	FuncFreeContextBuffer:          "FreeContextBuffer",
	FuncQuerySecurityPackageInfo:   "QuerySecurityPackageInfo",
	FuncReserved3:                  "Reserved3",
	FuncReserved4:                  "Reserved4",
	FuncExportSecurityContext:      "ExportSecurityContext",
	FuncImportSecurityContext:      "ImportSecurityContext",
	FuncAddCredentials:             "AddCredentials",
	FuncReserved8:                  "Reserved8",
	FuncQuerySecurityContextToken:  "QuerySecurityContextToken",
	FuncEncryptMessage:             "EncryptMessage",
	FuncDecryptMessage:             "DecryptMessage",
	FuncSetContextAttributes:       "SetContextAttributes",
}

func (f FunctionID) String() string {
	if name, ok := functionNames[f]; ok {
		return name
	}
	return fmt.Sprintf("FunctionID(%d)", uint8(f))
}

// IsReserved reports whether f is one of the placeholder identifiers with no
// defined payload.
func (f FunctionID) IsReserved() bool {
	switch f {
	case FuncReserved2, FuncReserved3, FuncReserved4, FuncReserved8:
		return true
	}
	return false
}

// Supported reports whether f has a request and response shape.
func (f FunctionID) Supported() bool {
	return f >= FuncEnumerateSecurityPackages && f <= MaxFunctionID && !f.IsReserved()
}

// SupportedFunctions returns every function identifier with a payload shape,
// in ascending order.
func SupportedFunctions() []FunctionID {
	out := make([]FunctionID, 0, int(MaxFunctionID)-4)
	for f := FuncEnumerateSecurityPackages; f <= MaxFunctionID; f++ {
		if f.Supported() {
			out = append(out, f)
		}
	}
	return out
}

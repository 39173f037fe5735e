package common

// Request parameter names used in ParamError tags and echoed in
// client-facing messages.
const (
	ParamUsername             = "username"
	ParamNewUsername          = "new username"
	ParamAccountPassword      = "account password"
	ParamAccountID            = "account identificator"
	ParamMasterPasswordOrCode = "master password or operation code"
	ParamNewAccountPassword   = "new account password"
	ParamNewMasterPassword    = "new master password"
	ParamRSAPublicKey         = "RSA public key"
	ParamAccountModel         = "account model"
)

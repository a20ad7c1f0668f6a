package daemon

const (
	homeFlag         = "home"
	forceFlag        = "force"
	rpcListenerFlag  = "rpc-listener"
	rpcClientFlag    = "rpc-client"
	hmacKeyFlag      = "hmac-key"
	ownerFlag        = "owner"
	subIDFlag        = "sub-id"
	consumerFlag     = "consumer"
	amountFlag       = "amount"
	randomWordsFlag  = "random-words"
	removeFlag       = "remove"
	timeoutFlag      = "timeout"
	defaultTimeoutMs = 5000
)

package daemon

const (
	homeFlag         = "home"
	forceFlag        = "force"
	networkFlag      = "network"
	rpcListenerFlag  = "rpc-listener"
	daemonAddrFlag   = "daemon-address"
	hmacKeyFlag      = "hmac-key"
	timeoutFlag      = "timeout"
	amountFlag       = "amount"
	randomWordsFlag  = "random-words"
	limitFlag        = "limit"
	fromFlag         = "from"
	acceptFlag       = "accept"
	defaultTimeoutMs = 5000
)

package domain

const (
	// ZeroAddress is the Ethereum zero address, the counterparty of mints and burns
	ZeroAddress = "0x0000000000000000000000000000000000000000"

	// ZeroAttestationUID is the cleared KYC attestation identifier
	ZeroAttestationUID = "0x0000000000000000000000000000000000000000000000000000000000000000"

	// PriceFeedDecimals is the decimal precision used by Chainlink-style price feeds
	PriceFeedDecimals = 8

	// BasisPointsDivisor converts basis-point rate fields into fractions
	BasisPointsDivisor = 10000

	// AnalyticsID is the fixed id of the analytics singleton row
	AnalyticsID = "1"
)

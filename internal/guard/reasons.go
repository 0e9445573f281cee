package guard

// Machine-readable rejection reasons. Every failing verdict carries
// exactly one of these.
const (
	ReasonExpectedOutNonPositive = "expectedOut<=0"
	ReasonMinOutAboveExpected    = "minOut>expectedOut"
	ReasonSlippageTooHigh        = "slippageTooHigh"

	ReasonCooldownActive = "cooldownActive"

	ReasonMEVRiskDetected = "mevRiskDetected"

	ReasonInvalidInputs      = "invalidInputs"
	ReasonProfitBelowTarget  = "profitBelowThreshold"
	ReasonMissingOrStaleFeed = "missingOrStaleFeed"

	ReasonNoGasPriceAndNo1559 = "noGasPriceAndNo1559"
	ReasonMaxFeePerGasTooHigh = "maxFeePerGasTooHigh"
	ReasonGasPriceTooHigh     = "gasPriceTooHigh"
	ReasonMaxFeeCastError     = "maxFeePerGasCastError"
	ReasonGasPriceCastError   = "gasPriceCastError"
	ReasonGasEstimationFailed = "gasEstimationFailed"
	ReasonGasLimitTooHigh     = "gasLimitTooHigh"

	ReasonInsufficientBalance   = "insufficientBalance"
	ReasonLoansDisabledInEnv    = "loansDisabledInEnv"
	ReasonNoLoanSourceAvailable = "noLoanSourceAvailable"
)

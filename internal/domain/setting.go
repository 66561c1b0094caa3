package domain

import "github.com/shopspring/decimal"

// SettingMinWithdrawalUSD is the policy floor for a withdrawal's estimated
// USD value, stored in the settings table and overwritten in place.
const SettingMinWithdrawalUSD = "min_withdrawal_usd"

var DefaultMinWithdrawalUSD = decimal.NewFromInt(40)

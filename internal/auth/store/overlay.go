package store

import "context"

// WithOTPs returns base with its OTP repository replaced by otps, including
// inside transactions. Used when OTP records live outside the SQL database.
func WithOTPs(base Store, otps OTPs) Store {
	return &otpOverlay{Store: base, otps: otps}
}

type otpOverlay struct {
	Store
	otps OTPs
}

func (o *otpOverlay) OTPs() OTPs { return o.otps }

func (o *otpOverlay) Tx(ctx context.Context) (Tx, error) {
	tx, err := o.Store.Tx(ctx)
	if err != nil {
		return nil, err
	}
	return &otpTxOverlay{txBase: tx, otps: o.otps}, nil
}

func (o *otpOverlay) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	return o.Store.WithTx(ctx, func(tx Tx) error {
		return fn(&otpTxOverlay{txBase: tx, otps: o.otps})
	})
}

// txBase names the embedded Tx so the field does not shadow the Tx method.
type txBase = Tx

type otpTxOverlay struct {
	txBase
	otps OTPs
}

func (o *otpTxOverlay) OTPs() OTPs { return o.otps }

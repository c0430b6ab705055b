package provider

import (
	"context"
	"fmt"

	"github.com/bastionpay/bastion/internal/model"
)

// The cash and bank-transfer rails make no outbound call. They mint a local
// reference and leave the transaction pending until an operator confirms the
// payment through ConfirmManualPayment.

type CashAdapter struct{}

func NewCashAdapter() *CashAdapter {
	return &CashAdapter{}
}

func (a *CashAdapter) Type() model.ProviderType {
	return model.ProviderCash
}

func (a *CashAdapter) Process(ctx context.Context, req ProcessRequest) (*ProcessResult, error) {
	return &ProcessResult{
		ProviderRef: fmt.Sprintf("cash-%s", req.TransactionID),
		Status:      model.StatusPending,
	}, nil
}

type BankTransferAdapter struct{}

func NewBankTransferAdapter() *BankTransferAdapter {
	return &BankTransferAdapter{}
}

func (a *BankTransferAdapter) Type() model.ProviderType {
	return model.ProviderBankTransfer
}

func (a *BankTransferAdapter) Process(ctx context.Context, req ProcessRequest) (*ProcessResult, error) {
	// The reference doubles as the payment-order purpose field the buyer
	// puts on the wire transfer.
	return &ProcessResult{
		ProviderRef: fmt.Sprintf("wire-%s", req.TransactionID),
		Status:      model.StatusPending,
	}, nil
}

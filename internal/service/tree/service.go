// Package tree implements the chart-of-accounts rules: hierarchical codes,
// parent/child consistency, soft-deletes, lazy traversal, and recursive
// balance aggregation.
package tree

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/govalues/decimal"

	"github.com/plazapos/contable/internal/coa"
	"github.com/plazapos/contable/internal/errs"
	"github.com/plazapos/contable/internal/ledger"
)

// Repo defines the read operations needed by the service.
type Repo interface {
	ListAccounts(ctx context.Context, businessID uuid.UUID) ([]ledger.Account, error)
	GetAccount(ctx context.Context, businessID, accountID uuid.UUID) (ledger.Account, error)
	AccountByCode(ctx context.Context, businessID uuid.UUID, code string) (ledger.Account, bool, error)
}

// Writer defines the write operations needed by the service.
type Writer interface {
	CreateAccount(ctx context.Context, a ledger.Account) (ledger.Account, error)
	UpdateAccount(ctx context.Context, a ledger.Account) (ledger.Account, error)
}

// Service exposes validation and maintenance of the account hierarchy.
type Service interface {
	ValidateCreate(ctx context.Context, a ledger.Account) error
	Create(ctx context.Context, a ledger.Account) (ledger.Account, error)
	Get(ctx context.Context, businessID, accountID uuid.UUID) (ledger.Account, error)
	SetActive(ctx context.Context, businessID, accountID uuid.UUID, active bool) (ledger.Account, error)
	Reparent(ctx context.Context, businessID, accountID uuid.UUID, newParentID *uuid.UUID) (ledger.Account, error)
	Flatten(ctx context.Context, businessID uuid.UUID) (iter.Seq[ledger.Account], error)
	SubtreeTotal(ctx context.Context, businessID, accountID uuid.UUID) (decimal.Decimal, error)
}

type service struct {
	repo   Repo
	writer Writer
}

func New(repo Repo, writer Writer) Service { return &service{repo: repo, writer: writer} }

// ValidateCreate checks the structural rules for a new account: well-formed
// unique code, known type, an existing parent, and a level one below it.
func (s *service) ValidateCreate(ctx context.Context, a ledger.Account) error {
	if a.BusinessID == uuid.Nil {
		return errs.ErrInvalid
	}
	if strings.TrimSpace(a.Name) == "" {
		return fmt.Errorf("%w: name is required", errs.ErrInvalid)
	}
	if !coa.IsCode(a.Code) {
		return fmt.Errorf("%w: malformed account code %q", errs.ErrInvalid, a.Code)
	}
	if !a.Type.Valid() {
		return fmt.Errorf("%w: invalid account type", errs.ErrInvalid)
	}
	if _, exists, err := s.repo.AccountByCode(ctx, a.BusinessID, a.Code); err != nil {
		return err
	} else if exists {
		return fmt.Errorf("%w: account code %s already exists", errs.ErrInvalid, a.Code)
	}
	if a.ParentID == nil {
		if a.Level != 1 {
			return fmt.Errorf("%w: root accounts must be level 1", errs.ErrInvalid)
		}
		return nil
	}
	if *a.ParentID == a.ID {
		return fmt.Errorf("%w: account cannot be its own parent", errs.ErrInvalid)
	}
	parent, err := s.repo.GetAccount(ctx, a.BusinessID, *a.ParentID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return fmt.Errorf("%w: parent account does not exist", errs.ErrInvalid)
		}
		return err
	}
	if !coa.IsChildOf(a.Code, parent.Code) {
		return fmt.Errorf("%w: code %s does not extend parent code %s", errs.ErrInvalid, a.Code, parent.Code)
	}
	if a.Level != parent.Level+1 {
		return fmt.Errorf("%w: level %d is inconsistent with parent level %d", errs.ErrInvalid, a.Level, parent.Level)
	}
	return nil
}

// Create inserts a new account into the tree.
func (s *service) Create(ctx context.Context, a ledger.Account) (ledger.Account, error) {
	if err := s.ValidateCreate(ctx, a); err != nil {
		return ledger.Account{}, err
	}
	acc := ledger.Account{
		ID:         uuid.New(),
		BusinessID: a.BusinessID,
		Code:       a.Code,
		Name:       strings.TrimSpace(a.Name),
		Type:       a.Type,
		Nature:     a.Nature,
		Level:      a.Level,
		Detail:     a.Detail,
		Balance:    a.Balance,
		Active:     true,
		ParentID:   a.ParentID,
	}
	if acc.Nature == "" {
		acc.Nature = ledger.NatureFor(acc.Type)
	}
	return s.writer.CreateAccount(ctx, acc)
}

func (s *service) Get(ctx context.Context, businessID, accountID uuid.UUID) (ledger.Account, error) {
	if businessID == uuid.Nil || accountID == uuid.Nil {
		return ledger.Account{}, errs.ErrInvalid
	}
	return s.repo.GetAccount(ctx, businessID, accountID)
}

// SetActive toggles visibility without deleting. Inactive accounts keep
// contributing to aggregation and traversal.
func (s *service) SetActive(ctx context.Context, businessID, accountID uuid.UUID, active bool) (ledger.Account, error) {
	acc, err := s.Get(ctx, businessID, accountID)
	if err != nil {
		return ledger.Account{}, err
	}
	acc.Active = active
	return s.writer.UpdateAccount(ctx, acc)
}

// Reparent moves an account and its whole subtree under a new parent. The
// move is rejected when it would create a cycle, i.e. when the proposed
// parent is the account itself or one of its descendants. Descendants shift
// level by the same amount as the moved account, keeping every account one
// level below its parent.
func (s *service) Reparent(ctx context.Context, businessID, accountID uuid.UUID, newParentID *uuid.UUID) (ledger.Account, error) {
	acc, err := s.Get(ctx, businessID, accountID)
	if err != nil {
		return ledger.Account{}, err
	}
	newLevel := 1
	if newParentID != nil {
		if *newParentID == accountID {
			return ledger.Account{}, fmt.Errorf("%w: account cannot be its own parent", errs.ErrInvalid)
		}
		parent, err := s.repo.GetAccount(ctx, businessID, *newParentID)
		if err != nil {
			if errors.Is(err, errs.ErrNotFound) {
				return ledger.Account{}, fmt.Errorf("%w: parent account does not exist", errs.ErrInvalid)
			}
			return ledger.Account{}, err
		}
		// Walk up from the proposed parent; hitting the account means the
		// parent lives inside the account's own subtree.
		cur := parent
		for cur.ParentID != nil {
			if *cur.ParentID == accountID {
				return ledger.Account{}, fmt.Errorf("%w: new parent is a descendant of the account", errs.ErrInvalid)
			}
			cur, err = s.repo.GetAccount(ctx, businessID, *cur.ParentID)
			if err != nil {
				return ledger.Account{}, err
			}
		}
		newLevel = parent.Level + 1
	}
	delta := newLevel - acc.Level
	acc.ParentID = newParentID
	acc.Level = newLevel
	moved, err := s.writer.UpdateAccount(ctx, acc)
	if err != nil {
		return ledger.Account{}, err
	}
	if delta != 0 {
		if err := s.shiftDescendants(ctx, businessID, accountID, delta); err != nil {
			return ledger.Account{}, err
		}
	}
	return moved, nil
}

// shiftDescendants adjusts the level of every account below rootID by delta
// after a reparent moved the subtree up or down the tree.
func (s *service) shiftDescendants(ctx context.Context, businessID, rootID uuid.UUID, delta int) error {
	accounts, err := s.repo.ListAccounts(ctx, businessID)
	if err != nil {
		return err
	}
	children := make(map[uuid.UUID][]ledger.Account)
	for _, a := range accounts {
		if a.ParentID != nil {
			children[*a.ParentID] = append(children[*a.ParentID], a)
		}
	}
	var walk func(id uuid.UUID) error
	walk = func(id uuid.UUID) error {
		for _, child := range children[id] {
			child.Level += delta
			if _, err := s.writer.UpdateAccount(ctx, child); err != nil {
				return err
			}
			if err := walk(child.ID); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(rootID)
}

// Flatten returns a lazy, restartable depth-first pre-order traversal of
// the chart: each account, then its subtree, siblings ordered by code.
// The snapshot is taken once; iterating the sequence again replays it.
func (s *service) Flatten(ctx context.Context, businessID uuid.UUID) (iter.Seq[ledger.Account], error) {
	if businessID == uuid.Nil {
		return nil, errs.ErrInvalid
	}
	accounts, err := s.repo.ListAccounts(ctx, businessID)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]ledger.Account, len(accounts))
	children := make(map[uuid.UUID][]uuid.UUID)
	roots := make([]uuid.UUID, 0)
	for _, a := range accounts {
		byID[a.ID] = a
		if a.ParentID == nil {
			roots = append(roots, a.ID)
		} else {
			children[*a.ParentID] = append(children[*a.ParentID], a.ID)
		}
	}
	byCode := func(ids []uuid.UUID) {
		sort.Slice(ids, func(i, j int) bool { return byID[ids[i]].Code < byID[ids[j]].Code })
	}
	byCode(roots)
	for _, ids := range children {
		byCode(ids)
	}
	var walk func(id uuid.UUID, yield func(ledger.Account) bool) bool
	walk = func(id uuid.UUID, yield func(ledger.Account) bool) bool {
		if !yield(byID[id]) {
			return false
		}
		for _, child := range children[id] {
			if !walk(child, yield) {
				return false
			}
		}
		return true
	}
	return func(yield func(ledger.Account) bool) {
		for _, root := range roots {
			if !walk(root, yield) {
				return
			}
		}
	}, nil
}

// SubtreeTotal sums the balance of the account and all its descendants.
// For a detail account this is just its own balance. O(subtree size);
// callers issuing repeated queries should cache.
func (s *service) SubtreeTotal(ctx context.Context, businessID, accountID uuid.UUID) (decimal.Decimal, error) {
	if businessID == uuid.Nil || accountID == uuid.Nil {
		return decimal.Decimal{}, errs.ErrInvalid
	}
	if _, err := s.repo.GetAccount(ctx, businessID, accountID); err != nil {
		return decimal.Decimal{}, err
	}
	accounts, err := s.repo.ListAccounts(ctx, businessID)
	if err != nil {
		return decimal.Decimal{}, err
	}
	children := make(map[uuid.UUID][]uuid.UUID)
	byID := make(map[uuid.UUID]ledger.Account, len(accounts))
	for _, a := range accounts {
		byID[a.ID] = a
		if a.ParentID != nil {
			children[*a.ParentID] = append(children[*a.ParentID], a.ID)
		}
	}
	var sum func(id uuid.UUID) (decimal.Decimal, error)
	sum = func(id uuid.UUID) (decimal.Decimal, error) {
		total := byID[id].Balance
		for _, child := range children[id] {
			sub, err := sum(child)
			if err != nil {
				return decimal.Decimal{}, err
			}
			total, err = total.Add(sub)
			if err != nil {
				return decimal.Decimal{}, err
			}
		}
		return total, nil
	}
	return sum(accountID)
}

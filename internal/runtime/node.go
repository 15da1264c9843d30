// Package runtime is the host side of the ledger. It verifies signed
// transactions, executes them against the contract one at a time, stamps
// block heights, and appends applied transactions to the log. This component
// is the bridge between callers and the contract logic: signatures are
// validated here, each delivered transaction becomes one block, and a
// rejected transaction leaves state and height untouched.
package runtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"courseledger.dev/cld/internal/contract"
	"courseledger.dev/cld/internal/ledger"
	"courseledger.dev/cld/internal/types"
)

// Receipt codes for envelope-level failures. Contract rejections pass their
// own codes (1-8) through to the receipt; these live above that space so a
// code is never ambiguous.
const (
	CodeOK                uint32 = 0
	CodeEncodingError     uint32 = 100
	CodeAuthError         uint32 = 101
	CodeUnknownEntrypoint uint32 = 102
)

// Both ledger state implementations must satisfy the contract's state
// interface; a mismatch should fail the build here, not at a call site.
var (
	_ contract.State = (*ledger.Store)(nil)
	_ contract.State = (*ledger.Tx)(nil)
	_ contract.State = (*ledger.Mem)(nil)
)

var errUnknownEntrypoint = errors.New("unknown entrypoint")

// Receipt reports the outcome of one submitted transaction.
type Receipt struct {
	TxID       string          `json:"tx_id,omitempty"`
	Entrypoint string          `json:"entrypoint,omitempty"`
	Sender     types.Principal `json:"sender,omitempty"`
	Height     uint64          `json:"height,omitempty"`
	Code       uint32          `json:"code"`
	Log        string          `json:"log"`
	Result     json.RawMessage `json:"result,omitempty"`
}

// OK reports whether the transaction was accepted.
func (r Receipt) OK() bool {
	return r.Code == CodeOK
}

// CourseResult is the receipt payload of a successful create-course call.
type CourseResult struct {
	CourseID uint64 `json:"course_id"`
}

// MaterialResult is the receipt payload of a successful add-course-material
// call.
type MaterialResult struct {
	CourseID   uint64 `json:"course_id"`
	MaterialID uint64 `json:"material_id"`
}

// Node applies signed transactions to the ledger sequentially. One delivered
// transaction is one block: the height advances only when the transaction
// commits.
type Node struct {
	mu     sync.Mutex
	store  *ledger.Store
	reg    *contract.Registry
	log    *zap.SugaredLogger
	height uint64
}

// Open builds a node over an opened store, restoring the last committed
// height from the ledger's metadata.
func Open(store *ledger.Store, log *zap.SugaredLogger) (*Node, error) {
	height, err := store.Height()
	if err != nil {
		return nil, fmt.Errorf("restore height: %w", err)
	}
	return &Node{
		store:  store,
		reg:    contract.NewRegistry(store),
		log:    log,
		height: height,
	}, nil
}

// Height returns the last committed block height.
func (n *Node) Height() uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.height
}

// SyncHeight re-reads the committed height from the store. Needed after a
// snapshot restore swaps the database underneath a live node.
func (n *Node) SyncHeight() (uint64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	h, err := n.store.Height()
	if err != nil {
		return 0, err
	}
	n.height = h
	return h, nil
}

// CheckTx validates a submission without executing it: envelope shape,
// signature, known entrypoint, and well-formed params. State is not
// consulted and nothing is written.
func (n *Node) CheckTx(raw []byte) Receipt {
	stx, tx, rcpt, ok := decode(raw)
	if !ok {
		return rcpt
	}

	rcpt = Receipt{TxID: tx.Nonce, Entrypoint: string(tx.Entrypoint), Sender: stx.Sender()}
	if _, err := decodeParams(tx); err != nil {
		return rejected(rcpt, err)
	}
	rcpt.Code = CodeOK
	rcpt.Log = "transaction is well-formed"
	return rcpt
}

// DeliverTx verifies a submission and executes it against the contract
// inside one store transaction. On success the block commits: state changes,
// height advances, and the transaction is appended to the log. On rejection
// the receipt carries the failure code and nothing is written. The returned
// error is reserved for storage failures.
func (n *Node) DeliverTx(raw []byte) (Receipt, error) {
	stx, tx, rcpt, ok := decode(raw)
	if !ok {
		n.log.Warnw("transaction rejected", "code", rcpt.Code, "log", rcpt.Log)
		return rcpt, nil
	}

	sender := stx.Sender()
	rcpt = Receipt{TxID: tx.Nonce, Entrypoint: string(tx.Entrypoint), Sender: sender}

	payload, err := decodeParams(tx)
	if err != nil {
		rcpt = rejected(rcpt, err)
		n.log.Warnw("transaction rejected",
			"entrypoint", tx.Entrypoint, "sender", sender.Short(), "code", rcpt.Code, "log", rcpt.Log)
		return rcpt, nil
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	height := n.height + 1
	var (
		result  any
		logLine string
	)
	err = n.store.InTx(func(ltx *ledger.Tx) error {
		reg := contract.NewRegistry(ltx)
		call := contract.Call{Sender: sender, Height: height}
		var execErr error
		result, logLine, execErr = execute(reg, call, payload)
		if execErr != nil {
			return execErr
		}
		if err := ltx.SetHeight(height); err != nil {
			return err
		}
		return ltx.AppendTx(ledger.TxRecord{
			Height:     height,
			TxID:       tx.Nonce,
			Sender:     string(sender),
			Entrypoint: string(tx.Entrypoint),
			Result:     logLine,
			AppliedAt:  time.Now().UTC(),
		})
	})
	if err != nil {
		if code := contract.CodeOf(err); code != 0 {
			rcpt.Code = code
			rcpt.Log = err.Error()
			n.log.Warnw("transaction rejected",
				"entrypoint", tx.Entrypoint, "sender", sender.Short(), "code", code, "log", rcpt.Log)
			return rcpt, nil
		}
		return Receipt{}, fmt.Errorf("apply %s: %w", tx.Entrypoint, err)
	}

	n.height = height
	rcpt.Height = height
	rcpt.Code = CodeOK
	rcpt.Log = logLine
	if result != nil {
		b, err := json.Marshal(result)
		if err != nil {
			return Receipt{}, fmt.Errorf("marshal %s result: %w", tx.Entrypoint, err)
		}
		rcpt.Result = b
	}
	n.log.Infow("transaction applied",
		"entrypoint", tx.Entrypoint, "sender", sender.Short(), "height", height, "tx_id", tx.Nonce)
	return rcpt, nil
}

// Read accessors answer against committed state; they never advance the
// height and never touch the transaction log.

func (n *Node) UserInfo(p types.Principal) (types.User, bool, error) {
	return n.reg.GetUserInfo(p)
}

func (n *Node) CourseDetails(id uint64) (types.Course, bool, error) {
	return n.reg.GetCourse(id)
}

func (n *Node) EnrollmentDetails(courseID uint64, student types.Principal) (types.Enrollment, bool, error) {
	return n.reg.GetEnrollment(courseID, student)
}

func (n *Node) CourseMaterial(courseID, materialID uint64) (types.CourseMaterial, bool, error) {
	return n.reg.GetCourseMaterial(courseID, materialID)
}

func (n *Node) CourseMaterialsCount(courseID uint64) (uint64, error) {
	return n.reg.GetCourseMaterialCount(courseID)
}

func (n *Node) LastCourseID() (uint64, error) {
	return n.reg.GetTotalCourses()
}

// TxLog returns the most recently applied transactions, newest first.
func (n *Node) TxLog(limit int) ([]ledger.TxRecord, error) {
	return n.store.ListTx(limit)
}

// decode unpacks a raw submission and verifies its signature. On failure it
// returns a non-OK receipt naming the problem.
func decode(raw []byte) (*types.SignedTransaction, *types.Transaction, Receipt, bool) {
	var stx types.SignedTransaction
	if err := json.Unmarshal(raw, &stx); err != nil {
		return nil, nil, Receipt{Code: CodeEncodingError, Log: "failed to decode signed tx"}, false
	}

	if !stx.Verify() {
		return nil, nil, Receipt{Code: CodeAuthError, Log: "invalid signature"}, false
	}

	tx, err := stx.GetTransaction()
	if err != nil {
		return nil, nil, Receipt{Code: CodeEncodingError, Log: "failed to decode inner tx"}, false
	}
	return &stx, tx, Receipt{}, true
}

// rejected fills in the receipt code for a params-decoding failure.
func rejected(rcpt Receipt, err error) Receipt {
	if errors.Is(err, errUnknownEntrypoint) {
		rcpt.Code = CodeUnknownEntrypoint
		rcpt.Log = fmt.Sprintf("unknown entrypoint %q", rcpt.Entrypoint)
	} else {
		rcpt.Code = CodeEncodingError
		rcpt.Log = err.Error()
	}
	return rcpt
}

// decodeParams unmarshals the typed payload for the transaction's
// entrypoint. Unknown entrypoints are reported as errUnknownEntrypoint.
func decodeParams(tx *types.Transaction) (any, error) {
	var (
		payload any
		err     error
	)
	switch tx.Entrypoint {
	case types.TxRegisterUser:
		var p types.RegisterUserPayload
		err = json.Unmarshal(tx.Params, &p)
		payload = p
	case types.TxCreateCourse:
		var p types.CreateCoursePayload
		err = json.Unmarshal(tx.Params, &p)
		payload = p
	case types.TxEnrollInCourse:
		var p types.EnrollPayload
		err = json.Unmarshal(tx.Params, &p)
		payload = p
	case types.TxAddCourseMaterial:
		var p types.AddMaterialPayload
		err = json.Unmarshal(tx.Params, &p)
		payload = p
	case types.TxUpdateCourseProgress:
		var p types.UpdateProgressPayload
		err = json.Unmarshal(tx.Params, &p)
		payload = p
	case types.TxDeactivateCourse:
		var p types.DeactivateCoursePayload
		err = json.Unmarshal(tx.Params, &p)
		payload = p
	default:
		return nil, errUnknownEntrypoint
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s params: %w", tx.Entrypoint, err)
	}
	return payload, nil
}

// execute runs one decoded payload against the contract and returns the
// receipt result value plus a human-readable log line.
func execute(reg *contract.Registry, call contract.Call, payload any) (any, string, error) {
	switch p := payload.(type) {
	case types.RegisterUserPayload:
		if err := reg.RegisterUser(call, p); err != nil {
			return nil, "", err
		}
		return nil, fmt.Sprintf("user %s registered", call.Sender.Short()), nil

	case types.CreateCoursePayload:
		id, err := reg.CreateCourse(call, p)
		if err != nil {
			return nil, "", err
		}
		return CourseResult{CourseID: id}, fmt.Sprintf("course %d created", id), nil

	case types.EnrollPayload:
		if err := reg.EnrollInCourse(call, p); err != nil {
			return nil, "", err
		}
		return nil, fmt.Sprintf("enrolled in course %d", p.CourseID), nil

	case types.AddMaterialPayload:
		id, err := reg.AddCourseMaterial(call, p)
		if err != nil {
			return nil, "", err
		}
		return MaterialResult{CourseID: p.CourseID, MaterialID: id},
			fmt.Sprintf("material %d added to course %d", id, p.CourseID), nil

	case types.UpdateProgressPayload:
		if err := reg.UpdateCourseProgress(call, p); err != nil {
			return nil, "", err
		}
		return nil, fmt.Sprintf("progress in course %d set to %d", p.CourseID, p.Progress), nil

	case types.DeactivateCoursePayload:
		if err := reg.DeactivateCourse(call, p); err != nil {
			return nil, "", err
		}
		return nil, fmt.Sprintf("course %d deactivated", p.CourseID), nil

	default:
		return nil, "", errUnknownEntrypoint
	}
}

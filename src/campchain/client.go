package campchain

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Hand-bound subset of the CampaignManager contract interface.
const campaignManagerABI = `[
  {"type":"function","name":"createCampaign","stateMutability":"nonpayable",
   "inputs":[
     {"name":"uuid_","type":"string"},
     {"name":"name_","type":"string"},
     {"name":"description_","type":"string"},
     {"name":"startAt_","type":"uint256"},
     {"name":"endAt_","type":"uint256"},
     {"name":"creator_","type":"address"},
     {"name":"participantNames","type":"string[]"},
     {"name":"participantWallets","type":"address[]"},
     {"name":"rewardAmount_","type":"uint256"}],
   "outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"getCampaignBasic","stateMutability":"view",
   "inputs":[{"name":"id","type":"uint256"}],
   "outputs":[
     {"name":"cid","type":"uint256"},
     {"name":"uuid_","type":"string"},
     {"name":"name_","type":"string"},
     {"name":"description_","type":"string"},
     {"name":"startAt","type":"uint256"},
     {"name":"endAt","type":"uint256"},
     {"name":"creator_","type":"address"},
     {"name":"rewardAmount","type":"uint256"},
     {"name":"funds","type":"uint256"},
     {"name":"status_","type":"uint8"},
     {"name":"imageUrl","type":"string"}]},
  {"type":"function","name":"getCampaignCreatorAndWallets","stateMutability":"view",
   "inputs":[{"name":"id","type":"uint256"}],
   "outputs":[
     {"name":"cid","type":"uint256"},
     {"name":"creator","type":"address"},
     {"name":"wallets","type":"address[]"}]},
  {"type":"function","name":"getParticipants","stateMutability":"view",
   "inputs":[{"name":"id","type":"uint256"}],
   "outputs":[{"name":"","type":"tuple[]","components":[
     {"name":"name","type":"string"},
     {"name":"wallet","type":"address"},
     {"name":"attended","type":"bool"},
     {"name":"nftMinted","type":"bool"}]}]},
  {"type":"function","name":"markAttendance","stateMutability":"nonpayable",
   "inputs":[
     {"name":"id","type":"uint256"},
     {"name":"attendees","type":"address[]"}],
   "outputs":[]}
]`

// Client talks to the CampaignManager contract over JSON-RPC. The signing
// key is passed in at construction; there is no hidden global provider.
type Client struct {
	eth      *ethclient.Client
	contract *bind.BoundContract
	abi      abi.ABI
	signer   *bind.TransactOpts // nil for read-only clients
	timeout  time.Duration
}

// NewClient connects to the given RPC endpoint. signerKeyHex may be empty,
// in which case mutating calls fail with ErrNoSigner.
func NewClient(ctx context.Context, rpcURL, managerAddr, signerKeyHex string, timeout time.Duration) (*Client, error) {
	if !common.IsHexAddress(managerAddr) {
		return nil, fmt.Errorf("invalid manager address %q", managerAddr)
	}

	eth, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	parsed, err := abi.JSON(strings.NewReader(campaignManagerABI))
	if err != nil {
		return nil, fmt.Errorf("parse abi: %w", err)
	}

	c := &Client{
		eth:      eth,
		contract: bind.NewBoundContract(common.HexToAddress(managerAddr), parsed, eth, eth, eth),
		abi:      parsed,
		timeout:  timeout,
	}
	if c.timeout <= 0 {
		c.timeout = 15 * time.Second
	}

	if signerKeyHex != "" {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(signerKeyHex, "0x"))
		if err != nil {
			return nil, fmt.Errorf("parse signer key: %w", err)
		}
		chainID, err := eth.ChainID(ctx)
		if err != nil {
			return nil, fmt.Errorf("chain id: %w", err)
		}
		signer, err := bind.NewKeyedTransactorWithChainID(key, chainID)
		if err != nil {
			return nil, fmt.Errorf("build transactor: %w", err)
		}
		c.signer = signer
	}

	return c, nil
}

// Close releases the underlying RPC connection.
func (c *Client) Close() {
	c.eth.Close()
}

// CreateCampaign publishes a campaign snapshot and waits for the
// transaction to be mined. Returns the transaction hash. The contract does
// not deduplicate by uuid tag, so the caller must not resubmit blindly.
func (c *Client) CreateCampaign(ctx context.Context, snap Snapshot) (string, error) {
	if c.signer == nil {
		return "", ErrNoSigner
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	opts := *c.signer
	opts.Context = ctx

	tx, err := c.contract.Transact(&opts, "createCampaign",
		snap.UUID,
		snap.Name,
		snap.Description,
		big.NewInt(snap.StartAt),
		big.NewInt(snap.EndAt),
		snap.Creator,
		snap.ParticipantNames,
		snap.ParticipantWallets,
		snap.Reward,
	)
	if err != nil {
		return "", fmt.Errorf("createCampaign: %w", err)
	}

	receipt, err := bind.WaitMined(ctx, c.eth, tx)
	if err != nil {
		return "", fmt.Errorf("wait mined %s: %w", tx.Hash().Hex(), err)
	}
	if receipt.Status != ethtypes.ReceiptStatusSuccessful {
		return "", fmt.Errorf("createCampaign tx %s reverted", tx.Hash().Hex())
	}
	return receipt.TxHash.Hex(), nil
}

// CampaignByID fetches a campaign record. Returns ErrNotFound when the
// ledger has nothing at that id; other errors are transport failures.
func (c *Client) CampaignByID(ctx context.Context, id uint64) (*OnchainCampaign, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var out []interface{}
	err := c.contract.Call(&bind.CallOpts{Context: ctx}, &out, "getCampaignBasic", new(big.Int).SetUint64(id))
	if err != nil {
		if isRevert(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	cid := out[0].(*big.Int)
	if cid.Sign() == 0 {
		// Ids start at 1; a zero id means an empty slot.
		return nil, ErrNotFound
	}

	return &OnchainCampaign{
		ID:           cid.Uint64(),
		UUID:         out[1].(string),
		Name:         out[2].(string),
		Description:  out[3].(string),
		StartAt:      time.Unix(out[4].(*big.Int).Int64(), 0).UTC(),
		EndAt:        time.Unix(out[5].(*big.Int).Int64(), 0).UTC(),
		Creator:      out[6].(common.Address).Hex(),
		RewardAmount: FromBaseUnits(out[7].(*big.Int)),
		Funds:        FromBaseUnits(out[8].(*big.Int)),
		Status:       Status(out[9].(uint8)),
		ImageURL:     out[10].(string),
	}, nil
}

type participantResult struct {
	Name      string
	Wallet    common.Address
	Attended  bool
	NftMinted bool
}

// Participants fetches the roster snapshot with attendance and badge flags.
func (c *Client) Participants(ctx context.Context, id uint64) ([]OnchainParticipant, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var out []interface{}
	err := c.contract.Call(&bind.CallOpts{Context: ctx}, &out, "getParticipants", new(big.Int).SetUint64(id))
	if err != nil {
		if isRevert(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	raw := *abi.ConvertType(out[0], new([]participantResult)).(*[]participantResult)
	participants := make([]OnchainParticipant, len(raw))
	for i, p := range raw {
		participants[i] = OnchainParticipant{
			Name:        p.Name,
			Wallet:      p.Wallet.Hex(),
			Attended:    p.Attended,
			BadgeMinted: p.NftMinted,
		}
	}
	return participants, nil
}

// CreatorAndWallets fetches just the creator and participant addresses,
// cheaper than the full roster for membership checks.
func (c *Client) CreatorAndWallets(ctx context.Context, id uint64) (string, []string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var out []interface{}
	err := c.contract.Call(&bind.CallOpts{Context: ctx}, &out, "getCampaignCreatorAndWallets", new(big.Int).SetUint64(id))
	if err != nil {
		if isRevert(err) {
			return "", nil, ErrNotFound
		}
		return "", nil, err
	}

	raw := *abi.ConvertType(out[2], new([]common.Address)).(*[]common.Address)
	wallets := make([]string, len(raw))
	for i, w := range raw {
		wallets[i] = w.Hex()
	}
	return out[1].(common.Address).Hex(), wallets, nil
}

// MarkAttendance flags the given attendees on chain. Returns the
// transaction hash.
func (c *Client) MarkAttendance(ctx context.Context, id uint64, attendees []common.Address) (string, error) {
	if c.signer == nil {
		return "", ErrNoSigner
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	opts := *c.signer
	opts.Context = ctx

	tx, err := c.contract.Transact(&opts, "markAttendance", new(big.Int).SetUint64(id), attendees)
	if err != nil {
		return "", fmt.Errorf("markAttendance: %w", err)
	}
	receipt, err := bind.WaitMined(ctx, c.eth, tx)
	if err != nil {
		return "", fmt.Errorf("wait mined %s: %w", tx.Hash().Hex(), err)
	}
	if receipt.Status != ethtypes.ReceiptStatusSuccessful {
		return "", fmt.Errorf("markAttendance tx %s reverted", tx.Hash().Hex())
	}
	return receipt.TxHash.Hex(), nil
}

// isRevert distinguishes "no record at this id" from transport failures.
// Contract views revert for out-of-range ids.
func isRevert(err error) bool {
	return err != nil && strings.Contains(err.Error(), "execution reverted")
}

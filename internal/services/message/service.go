package message

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"merklesig/internal/crypto"
	"merklesig/internal/domain"
	"merklesig/internal/protocol/ratchet"
)

// maxHeld caps the envelopes kept per peer while waiting for a gap in the
// inbound chain to fill.
const maxHeld = 64

var errHoldFull = errors.New("too many envelopes held ahead of a gap")

// Service sends and receives ratchet envelopes over the relay.
//
// High-level flow:
//   - Send: if no outbound chain exists, start one and sign its introduction
//     with our multi-use key; otherwise seal with the current chain key.
//     The sealed envelope joins the conversation's outbox, which is persisted
//     with the rotated chain and then posted oldest first. Envelopes the
//     relay refused stay in the outbox and go out before the next message.
//   - Receive: fetch envelopes and handle each one. In-order envelopes are
//     opened, early ones are held until the gap fills, duplicates are
//     dropped and envelopes that fail verification are rejected without
//     blocking the rest of the queue. Everything handled is acked.
type Service struct {
	keys         domain.KeyService
	ratchetStore domain.RatchetStore
	relayClient  domain.RelayClient
	log          *zap.Logger
	hasher       crypto.Hasher
}

// New constructs a message Service. Chains use BLAKE3 unless WithHasher is
// applied.
func New(
	keys domain.KeyService,
	ratchetStore domain.RatchetStore,
	relayClient domain.RelayClient,
	log *zap.Logger,
) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		keys:         keys,
		ratchetStore: ratchetStore,
		relayClient:  relayClient,
		log:          log.Named("message"),
		hasher:       crypto.Default(),
	}
}

// WithHasher selects the hash for new outbound chains.
func (s *Service) WithHasher(h crypto.Hasher) *Service {
	s.hasher = h
	return s
}

// SendMessage signs message for to and posts it via the relay, after any
// envelopes still waiting in the outbox. The key named after from signs the
// first envelope of a new chain.
//
// If the relay fails, the envelope is kept and the error is returned; the
// next SendMessage to the same peer retries it first.
func (s *Service) SendMessage(
	ctx context.Context,
	passphrase string,
	from domain.Username,
	to domain.Username,
	message []byte,
) error {
	conv, _, err := s.ratchetStore.LoadConversation(passphrase, to)
	if err != nil {
		return err
	}
	conv.Peer = to

	env, st, err := s.seal(ctx, passphrase, from, conv.Sender, message)
	if err != nil {
		return err
	}
	if conv.Sender == nil {
		s.log.Info("started chain", zap.String("peer", to.String()))
	}
	defer crypto.Wipe(st.Key)
	env.From = from
	env.To = to
	env.Timestamp = time.Now().Unix()

	// The old key is spent once the envelope exists: persist the rotation
	// and the envelope together before anything leaves the process.
	conv.Sender = &st
	conv.Pending = append(conv.Pending, env)
	if err := s.ratchetStore.SaveConversation(passphrase, to, conv); err != nil {
		return fmt.Errorf("save conversation %q: %w", to, err)
	}

	sent, sendErr := s.flush(ctx, &conv)
	if sent > 0 {
		if err := s.ratchetStore.SaveConversation(passphrase, to, conv); err != nil && sendErr == nil {
			sendErr = fmt.Errorf("save conversation %q: %w", to, err)
		}
	}
	if sendErr != nil {
		s.log.Warn("envelopes kept for resend",
			zap.String("peer", to.String()),
			zap.Int("pending", len(conv.Pending)),
			zap.Error(sendErr),
		)
		return fmt.Errorf("%d envelope(s) to %q kept for resend: %w", len(conv.Pending), to, sendErr)
	}
	return nil
}

// seal produces the next envelope of the outbound chain described by cur,
// starting a new chain when cur is nil, and returns the rotated state.
func (s *Service) seal(
	ctx context.Context,
	passphrase string,
	from domain.Username,
	cur *domain.SenderState,
	message []byte,
) (domain.Envelope, domain.SenderState, error) {
	if cur == nil {
		sender, err := ratchet.NewSender(s.hasher, nil)
		if err != nil {
			return domain.Envelope{}, domain.SenderState{}, err
		}
		env, d, err := sender.Introduce(message)
		if err != nil {
			return domain.Envelope{}, domain.SenderState{}, err
		}
		env.Signature, err = s.keys.Sign(ctx, passphrase, domain.KeyName(from), d[:])
		if err != nil {
			return domain.Envelope{}, domain.SenderState{}, fmt.Errorf("sign introduction with %q: %w", from, err)
		}
		return env, sender.State(), nil
	}

	sender, err := ratchet.RestoreSender(*cur, nil)
	if err != nil {
		return domain.Envelope{}, domain.SenderState{}, err
	}
	env, err := sender.Seal(message)
	if err != nil {
		return domain.Envelope{}, domain.SenderState{}, err
	}
	return env, sender.State(), nil
}

// flush posts the outbox in order and drops each envelope the relay
// accepts. It stops at the first failure and reports how many were sent.
func (s *Service) flush(ctx context.Context, conv *domain.Conversation) (int, error) {
	sent := 0
	for len(conv.Pending) > 0 {
		env := conv.Pending[0]
		if err := s.relayClient.SendMessage(ctx, env); err != nil {
			return sent, err
		}
		conv.Pending = conv.Pending[1:]
		sent++
		s.log.Debug("sent envelope", zap.String("peer", env.To.String()), zap.Uint64("seq", env.Seq))
	}
	conv.Pending = nil
	return sent, nil
}

// ReceiveMessages fetches pending envelopes for me and returns the messages
// that verified, in chain order per peer.
//
// Envelopes that fail verification are dropped from the queue and reported
// in the returned error alongside the messages that did verify. A storage
// or relay failure stops processing; that envelope and everything after it
// stay queued and only the handled prefix is acknowledged.
func (s *Service) ReceiveMessages(
	ctx context.Context,
	passphrase string,
	me domain.Username,
	limit int,
) ([]domain.ReceivedMessage, error) {
	envs, err := s.relayClient.FetchMessages(ctx, me, limit)
	if err != nil {
		return nil, err
	}
	out := make([]domain.ReceivedMessage, 0, len(envs))
	var errs []error
	handled := 0

	for _, env := range envs {
		got, rejected, err := s.receive(ctx, passphrase, env)
		if err != nil {
			errs = append(errs, fmt.Errorf("envelope %d from %q: %w", env.Seq, env.From, err))
			break
		}
		out = append(out, got...)
		errs = append(errs, rejected...)
		handled++
	}

	if handled > 0 {
		if err := s.relayClient.AckMessages(ctx, me, handled); err != nil {
			errs = append(errs, fmt.Errorf("ack %d messages: %w", handled, err))
		}
	}
	return out, errors.Join(errs...)
}

// receive handles one envelope against the stored conversation with its
// sender. It returns the messages that became readable, the envelopes it
// rejected, and an error only for failures that leave the envelope queued.
func (s *Service) receive(
	ctx context.Context,
	passphrase string,
	env domain.Envelope,
) ([]domain.ReceivedMessage, []error, error) {
	conv, _, err := s.ratchetStore.LoadConversation(passphrase, env.From)
	if err != nil {
		return nil, nil, err
	}
	conv.Peer = env.From

	var rejected []error
	reject := func(e domain.Envelope, err error) {
		s.log.Warn("rejected envelope",
			zap.String("peer", e.From.String()),
			zap.Uint64("seq", e.Seq),
			zap.Error(err),
		)
		rejected = append(rejected, fmt.Errorf("envelope %d from %q: %w", e.Seq, e.From, err))
	}

	var r *ratchet.Receiver
	if conv.Receiver != nil {
		if r, err = ratchet.RestoreReceiver(*conv.Receiver); err != nil {
			return nil, nil, err
		}
	}

	var got []domain.ReceivedMessage
	switch {
	case r == nil && env.Seq == 0:
		r, err = s.accept(ctx, env)
		if err != nil {
			if !isRejection(err) {
				return nil, nil, err
			}
			reject(env, err)
			return nil, rejected, nil
		}
		s.log.Info("accepted chain", zap.String("peer", env.From.String()))
		got = append(got, received(env))

	case r != nil && env.Seq < r.Seq():
		s.log.Debug("dropped duplicate envelope", zap.String("peer", env.From.String()), zap.Uint64("seq", env.Seq))
		return nil, nil, nil

	case r == nil || env.Seq > r.Seq():
		if len(conv.Held) >= maxHeld {
			reject(env, errHoldFull)
			return nil, rejected, nil
		}
		conv.Held = append(conv.Held, env)
		s.log.Debug("holding envelope ahead of gap", zap.String("peer", env.From.String()), zap.Uint64("seq", env.Seq))
		if err := s.ratchetStore.SaveConversation(passphrase, env.From, conv); err != nil {
			return nil, nil, fmt.Errorf("save conversation %q: %w", env.From, err)
		}
		return nil, nil, nil

	default:
		if _, err := r.Open(env); err != nil {
			reject(env, err)
			return nil, rejected, nil
		}
		got = append(got, received(env))
	}

	got = append(got, drainHeld(r, &conv, reject)...)
	st := r.State()
	conv.Receiver = &st
	if err := s.ratchetStore.SaveConversation(passphrase, env.From, conv); err != nil {
		return nil, nil, fmt.Errorf("save conversation %q: %w", env.From, err)
	}
	return got, rejected, nil
}

// accept verifies envelope 0 against the sender's published key.
func (s *Service) accept(ctx context.Context, env domain.Envelope) (*ratchet.Receiver, error) {
	published, err := s.relayClient.FetchKey(ctx, domain.KeyName(env.From))
	if err != nil {
		return nil, fmt.Errorf("fetch key of %q: %w", env.From, err)
	}
	return ratchet.Accept(env, func(d crypto.Digest) bool {
		return s.keys.Verify(published.PublicKey, d[:], env.Signature) == nil
	})
}

// drainHeld opens held envelopes for as long as one carries the sequence
// number r expects, then discards any that fell behind.
func drainHeld(r *ratchet.Receiver, conv *domain.Conversation, reject func(domain.Envelope, error)) []domain.ReceivedMessage {
	var got []domain.ReceivedMessage
	for {
		i := slices.IndexFunc(conv.Held, func(e domain.Envelope) bool { return e.Seq == r.Seq() })
		if i < 0 {
			break
		}
		env := conv.Held[i]
		conv.Held = slices.Delete(conv.Held, i, i+1)
		if _, err := r.Open(env); err != nil {
			reject(env, err)
			continue
		}
		got = append(got, received(env))
	}
	conv.Held = slices.DeleteFunc(conv.Held, func(e domain.Envelope) bool { return e.Seq < r.Seq() })
	if len(conv.Held) == 0 {
		conv.Held = nil
	}
	return got
}

// isRejection reports whether err condemns the envelope itself rather than
// the local store or the relay.
func isRejection(err error) bool {
	return errors.Is(err, ratchet.ErrBadSignature) ||
		errors.Is(err, ratchet.ErrOutOfOrder) ||
		errors.Is(err, domain.ErrMalformedInput) ||
		errors.Is(err, domain.ErrUnsupportedVersion) ||
		errors.Is(err, domain.ErrNotFound)
}

func received(env domain.Envelope) domain.ReceivedMessage {
	return domain.ReceivedMessage{
		From:      env.From,
		To:        env.To,
		Seq:       env.Seq,
		Message:   env.Message,
		Timestamp: env.Timestamp,
	}
}

// Compile-time assertion that Service implements domain.MessageService.
var _ domain.MessageService = (*Service)(nil)

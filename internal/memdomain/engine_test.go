package memdomain

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"

	"memdomain/pkg/platform/sentinel"
)

type TranslateSuite struct {
	suite.Suite
	registry *Registry
	engine   *Engine
	ctx      context.Context
}

func (s *TranslateSuite) SetupTest() {
	s.registry = NewRegistry()
	s.engine = NewEngine()
	s.ctx = context.Background()
}

func TestTranslateSuite(t *testing.T) {
	suite.Run(t, new(TranslateSuite))
}

// TestUnsupported verifies that a domain without a translate capability fails
// fast with no result.
func (s *TranslateSuite) TestUnsupported() {
	src, err := s.registry.Create(DeviceTypeRDMA, nil, "src")
	s.Require().NoError(err)
	dst, err := s.registry.Create(DeviceTypeDMA, nil, "dst")
	s.Require().NoError(err)

	result, err := s.engine.Translate(s.ctx, src, nil, dst, nil, 0x1000, 512)
	s.Require().ErrorIs(err, sentinel.ErrNotSupported)
	s.Nil(result)
}

// TestPassThrough verifies the engine forwards arguments untouched and returns
// the provider's result and error verbatim.
func (s *TranslateSuite) TestPassThrough() {
	src, err := s.registry.Create(DeviceTypeRDMA, nil, "src")
	s.Require().NoError(err)
	dst, err := s.registry.Create(DeviceTypeRDMA, nil, "dst")
	s.Require().NoError(err)

	s.Run("arguments arrive unchanged and success returns the result", func() {
		srcDomainCtx := "io-request-ctx"
		dstCtx := NewRDMATranslationContext("qp-handle")

		src.SetTranslation(func(_ context.Context, gotSrc *Domain, gotSrcCtx any, gotDst *Domain,
			gotDstCtx *TranslationContext, addr, length uint64) (*TranslationResult, error) {
			s.Same(src, gotSrc)
			s.Equal(srcDomainCtx, gotSrcCtx)
			s.Same(dst, gotDst)
			s.Same(dstCtx, gotDstCtx)
			s.Equal(uint64(0x2000), addr)
			s.Equal(uint64(4096), length)

			return &TranslationResult{
				Size:      TranslationResultSize,
				Addr:      addr,
				Len:       length,
				DstDomain: gotDst,
				RDMA:      &RDMAKeys{LKey: 7, RKey: 11},
			}, nil
		})

		result, err := s.engine.Translate(s.ctx, src, srcDomainCtx, dst, dstCtx, 0x2000, 4096)
		s.Require().NoError(err)
		s.Equal(uint64(0x2000), result.Addr)
		s.Equal(uint64(4096), result.Len)
		s.Same(dst, result.DstDomain)
		s.Equal(uint32(7), result.RDMA.LKey)
		s.Equal(uint32(11), result.RDMA.RKey)
	})

	s.Run("provider error returns verbatim", func() {
		providerErr := errors.New("mr registration failed")
		src.SetTranslation(func(_ context.Context, _ *Domain, _ any, _ *Domain,
			_ *TranslationContext, _, _ uint64) (*TranslationResult, error) {
			return nil, providerErr
		})

		result, err := s.engine.Translate(s.ctx, src, nil, dst, nil, 0, 8)
		s.Require().ErrorIs(err, providerErr)
		s.Nil(result)
	})
}

// TestIdempotence verifies two identical calls against a pure provider return
// equal results; the engine never caches or mutates in between.
func (s *TranslateSuite) TestIdempotence() {
	src, err := s.registry.Create(DeviceTypeRDMA, nil, "src")
	s.Require().NoError(err)
	dst, err := s.registry.Create(DeviceTypeRDMA, nil, "dst")
	s.Require().NoError(err)

	src.SetTranslation(func(_ context.Context, _ *Domain, _ any, gotDst *Domain,
		_ *TranslationContext, addr, length uint64) (*TranslationResult, error) {
		return &TranslationResult{
			Size:      TranslationResultSize,
			Addr:      addr + 0x100000,
			Len:       length,
			DstDomain: gotDst,
			RDMA:      &RDMAKeys{LKey: 21, RKey: 42},
		}, nil
	})

	first, err := s.engine.Translate(s.ctx, src, nil, dst, nil, 0x3000, 1024)
	s.Require().NoError(err)
	second, err := s.engine.Translate(s.ctx, src, nil, dst, nil, 0x3000, 1024)
	s.Require().NoError(err)

	s.Equal(first.Addr, second.Addr)
	s.Equal(first.Len, second.Len)
	s.Same(first.DstDomain, second.DstDomain)
	s.Equal(*first.RDMA, *second.RDMA)
}

package davgate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
)

// TransferOptions controls COPY and MOVE.
type TransferOptions struct {
	// Overwrite permits replacing an existing destination (Overwrite: T).
	Overwrite bool
	// Depth limits a collection COPY. DepthZero copies only the collection itself.
	// MOVE always transfers the whole subtree.
	Depth Depth
}

// TransferResult reports what a COPY or MOVE did.
type TransferResult struct {
	// Created is true when the destination did not exist beforehand.
	Created bool
	// Objects is the number of keys written at the destination.
	Objects int
}

// Copy duplicates the resource or collection at srcKey in src to dstKey in dst.
//
// Every key under the source is rewritten onto the destination prefix one at a
// time. A failure leaves a consistent subset of keys copied; calling Copy again
// with Overwrite set completes it.
func Copy(ctx context.Context, src *Bucket, srcKey string, dst *Bucket, dstKey string, opts TransferOptions) (TransferResult, error) {
	plan, err := prepareTransfer(ctx, src, srcKey, dst, dstKey, opts)
	if err != nil {
		return TransferResult{}, fmt.Errorf("copy: %w", err)
	}

	n, err := plan.execute(ctx)
	if err != nil {
		return TransferResult{Objects: n}, fmt.Errorf("copy: %w", err)
	}

	return TransferResult{Created: !plan.dstExisted, Objects: n}, nil
}

// Move relocates the resource or collection at srcKey in src to dstKey in dst.
//
// All destination objects are written and verified before any source object is
// removed, so an interrupted Move never loses data: the source stays complete
// until the final delete phase, which is itself safe to re-run.
func Move(ctx context.Context, src *Bucket, srcKey string, dst *Bucket, dstKey string, opts TransferOptions) (TransferResult, error) {
	opts.Depth = DepthInfinity

	plan, err := prepareTransfer(ctx, src, srcKey, dst, dstKey, opts)
	if err != nil {
		return TransferResult{}, fmt.Errorf("move: %w", err)
	}

	n, err := plan.execute(ctx)
	if err != nil {
		return TransferResult{Objects: n}, fmt.Errorf("move: %w", err)
	}

	if err := src.Delete(ctx, srcKey); err != nil {
		return TransferResult{Objects: n}, fmt.Errorf("move: remove source: %w", err)
	}

	return TransferResult{Created: !plan.dstExisted, Objects: n}, nil
}

type transferPlan struct {
	src, dst       *Bucket
	srcKey, dstKey string
	objects        []ObjectInfo
	dstExisted     bool
	overwrite      bool
}

func prepareTransfer(ctx context.Context, src *Bucket, srcKey string, dst *Bucket, dstKey string, opts TransferOptions) (*transferPlan, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if srcKey == "" || dstKey == "" || !IsValidKey(srcKey) || !IsValidKey(dstKey) {
		return nil, fmt.Errorf("%w: source and destination must be keys inside a bucket", ErrInvalidInput)
	}

	if src == dst && (IsWithin(dstKey, srcKey) || IsWithin(srcKey, dstKey)) {
		return nil, fmt.Errorf("%w: source and destination overlap", ErrInvalidInput)
	}

	entry, err := src.Stat(ctx, srcKey)
	if err != nil {
		return nil, err
	}

	parent, err := dst.Stat(ctx, ParentKey(dstKey))
	if errors.Is(err, ErrNotFound) || (err == nil && !parent.IsCollection) {
		return nil, fmt.Errorf("%s: %w", dstKey, ErrCollectionConflict)
	}
	if err != nil {
		return nil, err
	}

	_, err = dst.Stat(ctx, dstKey)
	dstExisted := err == nil
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	if dstExisted && !opts.Overwrite {
		return nil, fmt.Errorf("%s: %w", dstKey, ErrOverwriteDenied)
	}

	plan := &transferPlan{
		src:        src,
		dst:        dst,
		srcKey:     srcKey,
		dstKey:     dstKey,
		dstExisted: dstExisted,
		overwrite:  opts.Overwrite,
	}

	if !entry.IsCollection {
		info, err := src.store.Head(ctx, srcKey)
		if err != nil {
			return nil, storeErr("head "+srcKey, err)
		}
		plan.objects = []ObjectInfo{info}
		return plan, nil
	}

	// The destination always gets a marker, even when the source collection
	// only exists implicitly through its members.
	plan.objects = []ObjectInfo{{Key: MarkerKey(srcKey), ContentType: CollectionContentType}}

	if opts.Depth != DepthZero {
		members, err := src.store.List(ctx, ChildPrefix(srcKey))
		if err != nil {
			return nil, storeErr("list "+srcKey, err)
		}
		for _, m := range members {
			if m.Key == MarkerKey(srcKey) {
				continue
			}
			plan.objects = append(plan.objects, m)
		}
	}

	// Markers sort before their members, so collections exist before contents.
	sort.Slice(plan.objects, func(i, j int) bool {
		return plan.objects[i].Key < plan.objects[j].Key
	})

	return plan, nil
}

func (p *transferPlan) execute(ctx context.Context) (int, error) {
	if p.dstExisted && p.overwrite {
		if err := p.dst.Delete(ctx, p.dstKey); err != nil {
			return 0, fmt.Errorf("clear destination: %w", err)
		}
	}

	written := 0
	for _, obj := range p.objects {
		if err := ctx.Err(); err != nil {
			return written, err
		}

		target := RewritePrefix(obj.Key, p.srcKey, p.dstKey)
		if err := p.copyObject(ctx, obj, target); err != nil {
			return written, err
		}
		written++
	}

	return written, nil
}

func (p *transferPlan) copyObject(ctx context.Context, obj ObjectInfo, target string) error {
	if obj.IsMarker() {
		if _, err := p.dst.store.Put(ctx, target, CollectionContentType, bytes.NewReader(nil)); err != nil {
			return storeErr("write "+target, err)
		}
		return nil
	}

	info, body, err := p.src.store.Get(ctx, obj.Key)
	if err != nil {
		return storeErr("read "+obj.Key, err)
	}
	defer func() { _ = body.Close() }()

	if _, err := p.dst.store.Put(ctx, target, info.ContentType, body); err != nil {
		return storeErr("write "+target, err)
	}

	written, err := p.dst.store.Head(ctx, target)
	if err != nil {
		return storeErr("verify "+target, err)
	}
	if written.Size != info.Size {
		return fmt.Errorf("verify %s: %w: wrote %d bytes, source has %d", target, ErrInternal, written.Size, info.Size)
	}

	return nil
}

package memory

import (
	"context"
	"time"

	"github.com/S-FND/fnd1-sub000/pkg/core"
	"github.com/google/uuid"
)

type recordVersionStore struct {
	s *Store
}

func cloneVersion(v *core.RecordVersion) *core.RecordVersion {
	c := *v
	if v.Content != nil {
		c.Content = append([]byte{}, v.Content...)
	}
	if v.EvidenceRefs != nil {
		c.EvidenceRefs = append([]string{}, v.EvidenceRefs...)
	}
	if v.ApprovedBy != nil {
		approvedBy := *v.ApprovedBy
		c.ApprovedBy = &approvedBy
	}
	if v.ApprovedAt != nil {
		approvedAt := *v.ApprovedAt
		c.ApprovedAt = &approvedAt
	}
	if v.ApprovalRequestID != nil {
		requestID := *v.ApprovalRequestID
		c.ApprovalRequestID = &requestID
	}
	return &c
}

func checkModule(module core.Module) error {
	if !module.Valid() {
		return core.BadRequestf("未知模块: %s", module)
	}
	return nil
}

func (r *recordVersionStore) Create(ctx context.Context, module core.Module, version *core.RecordVersion) (*core.RecordVersion, error) {
	if err := checkModule(module); err != nil {
		return nil, err
	}

	err := r.s.write(ctx, func() error {
		records := r.s.versions[module]
		if records == nil {
			records = map[string][]*core.RecordVersion{}
			r.s.versions[module] = records
		}
		for _, v := range records[version.RecordID] {
			if v.VersionNumber == version.VersionNumber || (v.IsCurrent && version.IsCurrent) {
				return core.ErrConflict
			}
		}

		if version.ID == uuid.Nil {
			version.ID = uuid.New()
		}
		if version.CreatedAt.IsZero() {
			version.CreatedAt = time.Now().UTC()
		}
		version.Module = module
		records[version.RecordID] = append(records[version.RecordID], cloneVersion(version))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return version, nil
}

func (r *recordVersionStore) MaxVersionNumber(ctx context.Context, module core.Module, recordID string) (int, error) {
	if err := checkModule(module); err != nil {
		return 0, err
	}

	max := 0
	r.s.read(func() {
		for _, v := range r.s.versions[module][recordID] {
			if v.VersionNumber > max {
				max = v.VersionNumber
			}
		}
	})
	return max, nil
}

func (r *recordVersionStore) find(module core.Module, recordID string, match func(v *core.RecordVersion) bool) (*core.RecordVersion, error) {
	if err := checkModule(module); err != nil {
		return nil, err
	}

	var found *core.RecordVersion
	r.s.read(func() {
		for _, v := range r.s.versions[module][recordID] {
			if match(v) {
				found = cloneVersion(v)
				return
			}
		}
	})
	if found == nil {
		return nil, core.ErrNotFound
	}
	return found, nil
}

func (r *recordVersionStore) FindCurrent(ctx context.Context, module core.Module, recordID string) (*core.RecordVersion, error) {
	return r.find(module, recordID, func(v *core.RecordVersion) bool { return v.IsCurrent })
}

func (r *recordVersionStore) FindByNumber(ctx context.Context, module core.Module, recordID string, versionNumber int) (*core.RecordVersion, error) {
	version, err := r.find(module, recordID, func(v *core.RecordVersion) bool { return v.VersionNumber == versionNumber })
	if err == core.ErrNotFound {
		return nil, core.ErrVersionNotFound
	}
	return version, err
}

// ListByRecord 版本按写入顺序保存，版本号单调递增
func (r *recordVersionStore) ListByRecord(ctx context.Context, module core.Module, recordID string) ([]*core.RecordVersion, error) {
	if err := checkModule(module); err != nil {
		return nil, err
	}

	versions := []*core.RecordVersion{}
	r.s.read(func() {
		for _, v := range r.s.versions[module][recordID] {
			versions = append(versions, cloneVersion(v))
		}
	})
	return versions, nil
}

func (r *recordVersionStore) SetCurrent(ctx context.Context, module core.Module, recordID string, versionNumber int, approvedBy string, approvedAt time.Time) error {
	if err := checkModule(module); err != nil {
		return err
	}

	return r.s.write(ctx, func() error {
		versions := r.s.versions[module][recordID]

		var target *core.RecordVersion
		for _, v := range versions {
			if v.VersionNumber == versionNumber {
				target = v
			}
		}
		if target == nil {
			return core.ErrVersionNotFound
		}

		for _, v := range versions {
			v.IsCurrent = false
		}
		target.IsCurrent = true
		target.ApprovedBy = &approvedBy
		target.ApprovedAt = &approvedAt
		return nil
	})
}

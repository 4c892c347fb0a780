package model

import "go.mongodb.org/mongo-driver/v2/bson"

// maxBcryptBytes bcrypt 只接受 72 字节以内的输入
const maxBcryptBytes = 72

// User 用户
type User struct {
	ID             bson.ObjectID `bson:"_id,omitempty" json:"id"`
	Username       string        `bson:"username" json:"username"`
	Email          string        `bson:"email" json:"email"`
	FullName       string        `bson:"full_name,omitempty" json:"full_name,omitempty"`
	Disabled       bool          `bson:"disabled" json:"disabled"`
	HashedPassword string        `bson:"hashed_password" json:"-"` // never expose in JSON
}

// OwnerID 作为 events.owner_id 使用的字符串形式
func (u *User) OwnerID() string {
	return u.ID.Hex()
}

// SignUpInput 注册请求体
type SignUpInput struct {
	Username string `json:"username" validate:"required,min=1,max=64"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=64"`
	FullName string `json:"full_name,omitempty" validate:"max=128"`
}

// Validate 校验注册请求
func (in *SignUpInput) Validate() error {
	if err := checkStruct(in); err != nil {
		return err
	}
	if len(in.Password) > maxBcryptBytes {
		return NewValidationError("password", "must be at most %d bytes", maxBcryptBytes)
	}
	return nil
}

// SignUpResponse 注册响应（不包含密码）
type SignUpResponse struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"full_name,omitempty"`
}

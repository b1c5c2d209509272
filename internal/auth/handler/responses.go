package handler

import (
	"bucketlist/internal/auth/models"
)

type userResponse struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type registerResponse struct {
	Message string       `json:"message"`
	User    userResponse `json:"user"`
}

type loginResponse struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	AuthToken string `json:"auth_token"`
	ExpiresIn int64  `json:"expires_in"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func toUserResponse(u *models.User) userResponse {
	return userResponse{UserID: int64(u.ID), Username: u.Username, Email: u.Email}
}

func toLoginResponse(res *models.LoginResult) loginResponse {
	return loginResponse{
		Username:  res.User.Username,
		Email:     res.User.Email,
		AuthToken: res.Token,
		ExpiresIn: int64(res.ExpiresIn.Seconds()),
	}
}
